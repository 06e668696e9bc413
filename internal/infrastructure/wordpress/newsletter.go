package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/marketing"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// DefaultNewsletterPath is the subscribers route of The Newsletter Plugin REST API
const DefaultNewsletterPath = "/wp-json/newsletter/v2/subscribers"

// maxResponseSize caps the answer read from WordPress (1MB)
const maxResponseSize = 1 << 20

// Errors for WordPress configuration
var (
	ErrConfigMissingBaseURL     = errors.New("wordpress: base URL is required")
	ErrConfigMissingCredentials = errors.New("wordpress: newsletter client key/secret or application password is required")
)

// Config holds configuration for the WordPress newsletter endpoint
type Config struct {
	BaseURL        string
	NewsletterPath string
	// ClientKey and ClientSecret are The Newsletter Plugin API credentials
	ClientKey    string
	ClientSecret string
	// Username and ApplicationPassword are used when no client key is set
	Username            string
	ApplicationPassword string
	TimeoutSeconds      int
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.NewsletterPath == "" {
		c.NewsletterPath = DefaultNewsletterPath
	}
	if !strings.HasPrefix(c.NewsletterPath, "/") {
		c.NewsletterPath = "/" + c.NewsletterPath
	}
	if c.credentials() == "" {
		return ErrConfigMissingCredentials
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// credentials returns the basic auth user, empty when none is configured
func (c *Config) credentials() string {
	if c.ClientKey != "" && c.ClientSecret != "" {
		return c.ClientKey
	}
	if c.Username != "" && c.ApplicationPassword != "" {
		return c.Username
	}
	return ""
}

func (c *Config) setAuth(req *http.Request) {
	if c.ClientKey != "" && c.ClientSecret != "" {
		req.SetBasicAuth(c.ClientKey, c.ClientSecret)
		return
	}
	req.SetBasicAuth(c.Username, c.ApplicationPassword)
}

// NewsletterAdapter implements marketing.NewsletterGateway with The Newsletter Plugin
type NewsletterAdapter struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ marketing.NewsletterGateway = (*NewsletterAdapter)(nil)

// NewNewsletterAdapter creates the adapter; httpClient may be nil
func NewNewsletterAdapter(cfg Config, httpClient *http.Client, log *zap.Logger) (*NewsletterAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NewsletterAdapter{config: &cfg, httpClient: httpClient, logger: log.Named("wordpress")}, nil
}

type subscriberRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	Status    string `json:"status,omitempty"`
}

type subscriberResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Status    string `json:"status"`
}

// Subscribe adds the subscriber to the mailing list
func (a *NewsletterAdapter) Subscribe(ctx context.Context, s marketing.Subscriber) (*marketing.Subscriber, error) {
	payload, err := json.Marshal(subscriberRequest{Email: s.Email, FirstName: s.FirstName, Status: string(s.Status)})
	if err != nil {
		return nil, fmt.Errorf("wordpress: failed to encode request: %w", err)
	}

	endpoint := a.config.BaseURL + a.config.NewsletterPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("wordpress: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	a.config.setAuth(req)

	log := logger.Or(ctx, a.logger)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", integration.ErrPlatformTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()
	log.Debug("wordpress request",
		zap.String("method", http.MethodPost),
		zap.String("path", a.config.NewsletterPath),
		zap.Int("status", resp.StatusCode),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, a.statusError(log, resp.StatusCode, body)
	}

	var out subscriberResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("%w: failed to parse response: %v", integration.ErrPlatformInvalidResponse, err)
		}
	}
	result := &marketing.Subscriber{
		ID:        out.ID,
		Email:     s.Email,
		FirstName: s.FirstName,
		Status:    marketing.SubscriberStatus(out.Status),
	}
	if out.Email != "" {
		result.Email = strings.ToLower(out.Email)
	}
	return result, nil
}

func (a *NewsletterAdapter) statusError(log *zap.Logger, status int, body []byte) error {
	pe := &integration.PlatformError{StatusCode: status}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		pe.Code = payload.Code
		pe.Message = payload.Message
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}

	switch {
	case (status == http.StatusBadRequest || status == http.StatusConflict) &&
		strings.Contains(strings.ToLower(pe.Message+" "+pe.Code), "exist"):
		return fmt.Errorf("%w: %w", marketing.ErrAlreadySubscribed, pe)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %w: %w", integration.ErrPlatformRequestFailed, integration.ErrPlatformRejected, pe)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		log.Error("wordpress rejected the newsletter credentials", zap.Int("status", status))
		return fmt.Errorf("%w: %w: %w", integration.ErrPlatformRequestFailed, integration.ErrPlatformAuthFailed, pe)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %w", integration.ErrPlatformRequestFailed, integration.ErrPlatformNotFound, pe)
	default:
		return fmt.Errorf("%w: %w", integration.ErrPlatformRequestFailed, pe)
	}
}
