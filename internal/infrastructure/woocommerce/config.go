package woocommerce

import (
	"errors"
	"net/url"
	"strings"
)

// AuthMode selects how requests to the WooCommerce REST API are authenticated
type AuthMode string

const (
	// AuthModeAuto uses basic auth over https and OAuth1 over plain http
	AuthModeAuto AuthMode = "auto"
	// AuthModeOAuth1 signs every request with one-legged OAuth 1.0a
	AuthModeOAuth1 AuthMode = "oauth1"
	// AuthModeBasic sends the consumer key and secret as HTTP basic credentials
	AuthModeBasic AuthMode = "basic"
)

// DefaultAPIVersion is the WooCommerce REST namespace
const DefaultAPIVersion = "wc/v3"

// Errors for WooCommerce configuration
var (
	ErrConfigMissingBaseURL        = errors.New("woocommerce: base URL is required")
	ErrConfigInvalidBaseURL        = errors.New("woocommerce: base URL must be an absolute http(s) URL")
	ErrConfigMissingConsumerKey    = errors.New("woocommerce: consumer key is required")
	ErrConfigMissingConsumerSecret = errors.New("woocommerce: consumer secret is required")
	ErrConfigInvalidAuthMode       = errors.New("woocommerce: auth mode must be auto, oauth1 or basic")
)

// Config holds configuration for the WooCommerce REST API
type Config struct {
	// BaseURL is the WordPress site root, e.g. https://shop.example.com
	BaseURL string
	// ConsumerKey is the REST API key (ck_...)
	ConsumerKey string
	// ConsumerSecret is the REST API secret (cs_...)
	ConsumerSecret string
	AuthMode       AuthMode
	// APIVersion is the REST namespace, wc/v3 by default
	APIVersion string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrConfigInvalidBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrConfigMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrConfigMissingConsumerSecret
	}
	if c.AuthMode == "" {
		c.AuthMode = AuthModeAuto
	}
	switch c.AuthMode {
	case AuthModeAuto, AuthModeOAuth1, AuthModeBasic:
	default:
		return ErrConfigInvalidAuthMode
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	c.APIVersion = strings.Trim(c.APIVersion, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// usesOAuth1 resolves the auto mode against the URL scheme
func (c *Config) usesOAuth1() bool {
	switch c.AuthMode {
	case AuthModeOAuth1:
		return true
	case AuthModeBasic:
		return false
	default:
		return strings.HasPrefix(c.BaseURL, "http://")
	}
}

// apiURL returns the absolute URL of a REST route
func (c *Config) apiURL(path string) string {
	return c.BaseURL + "/wp-json/" + c.APIVersion + "/" + strings.TrimLeft(path, "/")
}
