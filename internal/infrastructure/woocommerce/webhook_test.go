package woocommerce

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront/backend/internal/domain/integration"
)

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"id":10,"name":"Shoe"}`)

	assert.Equal(t, "OrW+4uVtrOP920emKXCAV4cY014iuv5reKbR4eASc/A=", WebhookSignature("whsec", body))
	assert.NoError(t, VerifyWebhookSignature("whsec", body, "OrW+4uVtrOP920emKXCAV4cY014iuv5reKbR4eASc/A="))
	assert.ErrorIs(t, VerifyWebhookSignature("whsec", body, "bogus"), integration.ErrPlatformInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("other", body, WebhookSignature("whsec", body)), integration.ErrPlatformInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("", body, "x"), integration.ErrPlatformNotConfigured)
}
