package integration

import (
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	ErrPlatformNotConfigured    = errors.New("integration: platform not configured")
	ErrPlatformUnavailable      = errors.New("integration: platform temporarily unavailable")
	ErrPlatformTimeout          = errors.New("integration: platform request timed out")
	ErrPlatformRequestFailed    = errors.New("integration: platform request failed")
	ErrPlatformNotFound         = errors.New("integration: resource not found on platform")
	ErrPlatformRejected         = errors.New("integration: platform rejected the request")
	ErrPlatformAuthFailed       = errors.New("integration: platform authentication failed")
	ErrPlatformInvalidResponse  = errors.New("integration: invalid platform response")
	ErrPlatformInvalidSignature = errors.New("integration: invalid platform signature")
)

// PlatformError carries the error body returned by the platform.
// WooCommerce and WordPress answer errors as {"code": "...", "message": "..."}.
type PlatformError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// PlatformMessage returns the platform's own message for err, if any
func PlatformMessage(err error) string {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return ""
}

// ToDomainError translates platform failures into domain errors.
// Errors that are not platform failures are returned unchanged.
func ToDomainError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, ErrPlatformNotFound):
		return shared.ErrNotFound
	case errors.Is(err, ErrPlatformRejected):
		msg := PlatformMessage(err)
		if msg == "" {
			msg = "The store rejected the request"
		}
		return shared.NewDomainError("BUSINESS_RULE", msg)
	case errors.Is(err, ErrPlatformTimeout):
		return shared.ErrUpstreamTimeout
	case errors.Is(err, ErrPlatformUnavailable),
		errors.Is(err, ErrPlatformRequestFailed),
		errors.Is(err, ErrPlatformAuthFailed),
		errors.Is(err, ErrPlatformInvalidResponse),
		errors.Is(err, ErrPlatformNotConfigured):
		return shared.ErrUpstream
	default:
		return err
	}
}
