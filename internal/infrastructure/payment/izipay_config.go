package payment

import (
	"errors"
	"net/url"
	"strings"
)

// Izipay modes
const (
	IzipayModeTest       = "TEST"
	IzipayModeProduction = "PRODUCTION"
)

// DefaultIzipayAPIBaseURL is the REST endpoint of the Izipay (Lyra) platform in Peru
const DefaultIzipayAPIBaseURL = "https://api.micuentaweb.pe"

// IzipayConfig contains configuration for the Izipay REST API V4
type IzipayConfig struct {
	// ShopID is the merchant shop identifier, used as the Basic auth user
	ShopID string
	// Password is the REST API password for the current mode.
	// It also signs IPNs sent with kr-hash-key=password.
	Password string
	// HMACKey is the HMAC-SHA-256 key that signs browser returns
	HMACKey string
	// PublicKey is handed to the browser's embedded form
	PublicKey string
	// APIBaseURL is the REST API root without trailing slash
	APIBaseURL string
	// Currency is the ISO 4217 code charged, PEN by default
	Currency string
	// Mode is TEST or PRODUCTION
	Mode string
	// IPNURL overrides the notification URL of the merchant back office
	IPNURL string
	// TimeoutSeconds bounds every API call
	TimeoutSeconds int
}

// Errors for configuration validation
var (
	ErrIzipayMissingShopID    = errors.New("izipay: missing shop ID")
	ErrIzipayMissingPassword  = errors.New("izipay: missing API password")
	ErrIzipayMissingHMACKey   = errors.New("izipay: missing HMAC-SHA-256 key")
	ErrIzipayMissingPublicKey = errors.New("izipay: missing public key")
	ErrIzipayInvalidBaseURL   = errors.New("izipay: API base URL must be absolute")
	ErrIzipayInvalidMode      = errors.New("izipay: mode must be TEST or PRODUCTION")
	ErrIzipayInvalidIPNURL    = errors.New("izipay: IPN URL must be absolute")
)

// Validate validates the configuration and applies defaults
func (c *IzipayConfig) Validate() error {
	if c.ShopID == "" {
		return ErrIzipayMissingShopID
	}
	if c.Password == "" {
		return ErrIzipayMissingPassword
	}
	if c.HMACKey == "" {
		return ErrIzipayMissingHMACKey
	}
	if c.PublicKey == "" {
		return ErrIzipayMissingPublicKey
	}

	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultIzipayAPIBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if u, err := url.Parse(c.APIBaseURL); err != nil || !u.IsAbs() {
		return ErrIzipayInvalidBaseURL
	}

	c.Mode = strings.ToUpper(c.Mode)
	if c.Mode == "" {
		c.Mode = IzipayModeTest
	}
	if c.Mode != IzipayModeTest && c.Mode != IzipayModeProduction {
		return ErrIzipayInvalidMode
	}

	if c.IPNURL != "" {
		if u, err := url.Parse(c.IPNURL); err != nil || !u.IsAbs() {
			return ErrIzipayInvalidIPNURL
		}
	}

	c.Currency = strings.ToUpper(c.Currency)
	if c.Currency == "" {
		c.Currency = "PEN"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// IsConfigured returns true if the credentials needed to take payments are set
func (c *IzipayConfig) IsConfigured() bool {
	return c.ShopID != "" && c.Password != "" && c.HMACKey != "" && c.PublicKey != ""
}
