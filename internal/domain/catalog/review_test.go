package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductReview(t *testing.T) {
	t.Run("valid review goes to moderation", func(t *testing.T) {
		r, err := NewProductReview(7, " Ana ", "ana@example.com", " Great fit ", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(7), r.ProductID)
		assert.Equal(t, "Ana", r.Reviewer)
		assert.Equal(t, "Great fit", r.Review)
		assert.Equal(t, ReviewStatusHold, r.Status)
	})

	tests := []struct {
		name     string
		product  int64
		reviewer string
		email    string
		text     string
		rating   int
		wantMsg  string
	}{
		{"missing product", 0, "Ana", "ana@example.com", "ok", 4, "Product ID"},
		{"missing reviewer", 7, "  ", "ana@example.com", "ok", 4, "Reviewer name"},
		{"bad email", 7, "Ana", "not-an-email", "ok", 4, "email"},
		{"empty text", 7, "Ana", "ana@example.com", "", 4, "Review text"},
		{"rating too low", 7, "Ana", "ana@example.com", "ok", 0, "Rating"},
		{"rating too high", 7, "Ana", "ana@example.com", "ok", 6, "Rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProductReview(tt.product, tt.reviewer, tt.email, tt.text, tt.rating)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
