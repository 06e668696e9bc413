package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationItem struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,min=1,max=999"`
}

type validationRequest struct {
	Email string           `json:"email" binding:"required,email"`
	Items []validationItem `json:"items" binding:"required,min=1,dive"`
	Note  string           `json:"note" binding:"max=5"`
}

func bindErrors(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	SetupValidator()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req validationRequest
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	fields := map[string]string{}
	for _, d := range ValidationDetails(err) {
		fields[d.Field] = d.Message
	}
	return fields
}

func TestValidationDetails_UsesJSONNames(t *testing.T) {
	fields := bindErrors(t, `{"email":"nope","items":[{"product_id":5,"quantity":1000}],"note":"too long"}`)

	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Must be at most 999", fields["items[0].quantity"])
	assert.Equal(t, "Must be at most 5 characters", fields["note"])
}

func TestValidationDetails_Required(t *testing.T) {
	fields := bindErrors(t, `{}`)

	assert.Equal(t, "This field is required", fields["email"])
	assert.Equal(t, "This field is required", fields["items"])
}

func TestValidationDetails_NotAValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "billing.email", fieldPath("CheckoutRequest.billing.email"))
	assert.Equal(t, "email", fieldPath("email"))
}
