package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// maxResponseSize is the maximum allowed response size from the REST API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxPerPage is the largest page WooCommerce serves
const maxPerPage = 100

// Paging is read from the X-WP-Total and X-WP-TotalPages headers
type Paging struct {
	Total      int64
	TotalPages int
}

// Client is a JSON client for the WooCommerce REST API
type Client struct {
	config     *Config
	httpClient *http.Client
	signer     *Signer
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the http.Client, e.g. to add tracing transports
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the OAuth1 timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.signer.now = now
	}
}

// WithNonce sets the OAuth1 nonce source
func WithNonce(nonce func() string) Option {
	return func(c *Client) {
		c.signer.nonce = nonce
	}
}

// NewClient creates a client with the given configuration
func NewClient(cfg Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		config: &cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		signer: NewSigner(cfg.ConsumerKey, cfg.ConsumerSecret),
		logger: log.Named("woocommerce"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches path with the query parameters and decodes the JSON answer into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (*Paging, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the answer into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// Put sends body as JSON and decodes the answer into out
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

// Delete deletes the resource at path
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, http.MethodDelete, path, query, nil, out)
	return err
}

// Ping checks that the REST namespace answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "", nil, nil, nil)
	return err
}

// ListAll walks every page of a collection at 100 items per page
func ListAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("per_page", strconv.Itoa(maxPerPage))

	var all []T
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))
		var batch []T
		paging, err := c.Get(ctx, path, q, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) == 0 || page >= paging.TotalPages {
			return all, nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*Paging, error) {
	endpoint := c.config.apiURL(path)
	if query == nil {
		query = url.Values{}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("woocommerce: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	oauth := c.config.usesOAuth1()
	target := endpoint
	if oauth {
		target += "?" + EncodeParams(c.signer.Sign(method, endpoint, query))
	} else if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !oauth {
		req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)
	}

	log := logger.Or(ctx, c.logger)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("woocommerce request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	log.Debug("woocommerce request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			log.Error("woocommerce rejected the API credentials",
				zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		}
		return nil, statusError(resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("%w: failed to parse response: %v", integration.ErrPlatformInvalidResponse, err)
		}
	}

	return readPaging(resp.Header), nil
}

func readPaging(h http.Header) *Paging {
	p := &Paging{TotalPages: 1}
	if v, err := strconv.ParseInt(h.Get("X-WP-Total"), 10, 64); err == nil {
		p.Total = v
	}
	if v, err := strconv.Atoi(h.Get("X-WP-TotalPages")); err == nil {
		p.TotalPages = v
	}
	return p
}

// transportError classifies a failed round trip as a timeout or an outage
func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", integration.ErrPlatformTimeout, err)
	}
	return fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
}

// statusError converts an error answer into a PlatformError wrapped with the
// request-failed sentinel and, where one applies, a more specific sentinel
func statusError(status int, body []byte) error {
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
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %w", integration.ErrPlatformRequestFailed, integration.ErrPlatformNotFound, pe)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %w: %w", integration.ErrPlatformRequestFailed, integration.ErrPlatformRejected, pe)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w: %w", integration.ErrPlatformRequestFailed, integration.ErrPlatformAuthFailed, pe)
	default:
		return fmt.Errorf("%w: %w", integration.ErrPlatformRequestFailed, pe)
	}
}
