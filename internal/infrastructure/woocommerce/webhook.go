package woocommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/integration"
)

// Webhook delivery headers
const (
	HeaderWebhookSignature = "X-WC-Webhook-Signature"
	HeaderWebhookTopic     = "X-WC-Webhook-Topic"
	HeaderWebhookResource  = "X-WC-Webhook-Resource"
	HeaderWebhookEvent     = "X-WC-Webhook-Event"
)

// WebhookSignature returns the base64 HMAC-SHA256 of body keyed with secret
func WebhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the X-WC-Webhook-Signature header of a delivery
func VerifyWebhookSignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: webhook secret is not configured", integration.ErrPlatformNotConfigured)
	}
	expected := WebhookSignature(secret, body)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return integration.ErrPlatformInvalidSignature
	}
	return nil
}
