package woocommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/shared"
)

func newTestClient(t *testing.T, serverURL string, mode AuthMode, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		WithNonce(func() string { return "abc123" }),
	}, opts...)
	c, err := NewClient(Config{
		BaseURL:        serverURL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_secret",
		AuthMode:       mode,
	}, zap.NewNop(), opts...)
	require.NoError(t, err)
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"valid", Config{BaseURL: "https://shop.test/", ConsumerKey: "ck", ConsumerSecret: "cs"}, nil},
		{"missing url", Config{ConsumerKey: "ck", ConsumerSecret: "cs"}, ErrConfigMissingBaseURL},
		{"relative url", Config{BaseURL: "shop.test", ConsumerKey: "ck", ConsumerSecret: "cs"}, ErrConfigInvalidBaseURL},
		{"missing key", Config{BaseURL: "https://shop.test", ConsumerSecret: "cs"}, ErrConfigMissingConsumerKey},
		{"missing secret", Config{BaseURL: "https://shop.test", ConsumerKey: "ck"}, ErrConfigMissingConsumerSecret},
		{"bad mode", Config{BaseURL: "https://shop.test", ConsumerKey: "ck", ConsumerSecret: "cs", AuthMode: "jwt"}, ErrConfigInvalidAuthMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://shop.test", cfg.BaseURL)
			assert.Equal(t, AuthModeAuto, cfg.AuthMode)
			assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
			assert.Equal(t, 15, cfg.TimeoutSeconds)
		})
	}
}

func TestConfig_usesOAuth1(t *testing.T) {
	assert.True(t, (&Config{BaseURL: "http://shop.test", AuthMode: AuthModeAuto}).usesOAuth1())
	assert.False(t, (&Config{BaseURL: "https://shop.test", AuthMode: AuthModeAuto}).usesOAuth1())
	assert.True(t, (&Config{BaseURL: "https://shop.test", AuthMode: AuthModeOAuth1}).usesOAuth1())
	assert.False(t, (&Config{BaseURL: "http://shop.test", AuthMode: AuthModeBasic}).usesOAuth1())
}

func TestClient_Get_OAuth1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)
		_, _, hasBasic := r.BasicAuth()
		assert.False(t, hasBasic)

		q := r.URL.Query()
		assert.Equal(t, "red shoes", q.Get("search"))
		assert.Equal(t, "abc123", q.Get("oauth_nonce"))

		// recompute the signature the way the server does
		got := q.Get("oauth_signature")
		q.Del("oauth_signature")
		expected := fixedSigner().Sign("GET", "http://"+r.Host+r.URL.Path, url.Values{
			"search": {"red shoes"},
		})
		assert.Equal(t, expected.Get("oauth_signature"), got)

		w.Header().Set("X-WP-Total", "42")
		w.Header().Set("X-WP-TotalPages", "5")
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, AuthModeAuto)

	var out []struct {
		ID int64 `json:"id"`
	}
	paging, err := c.Get(context.Background(), "products", url.Values{"search": {"red shoes"}}, &out)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, int64(42), paging.Total)
	assert.Equal(t, 5, paging.TotalPages)
}

func TestClient_Post_Basic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ck_test", user)
		assert.Equal(t, "cs_secret", pass)
		assert.Empty(t, r.URL.Query().Get("oauth_signature"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["note"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, AuthModeBasic)

	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, c.Post(context.Background(), "orders/1/notes", map[string]string{"note": "hello"}, &out))
	assert.Equal(t, int64(9), out.ID)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		sentinel   error
		domainCode string
	}{
		{"not found", 404, `{"code":"woocommerce_rest_product_invalid_id","message":"Invalid ID."}`, integration.ErrPlatformNotFound, "NOT_FOUND"},
		{"bad request", 400, `{"code":"woocommerce_rest_invalid_coupon","message":"Coupon \"x\" does not exist!"}`, integration.ErrPlatformRejected, "BUSINESS_RULE"},
		{"unauthorized", 401, `{"code":"woocommerce_rest_cannot_view","message":"Sorry"}`, integration.ErrPlatformAuthFailed, "UPSTREAM_ERROR"},
		{"server error", 500, `<html>oops</html>`, integration.ErrPlatformRequestFailed, "UPSTREAM_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL, AuthModeBasic)
			_, err := c.Get(context.Background(), "products/1", nil, nil)

			require.Error(t, err)
			assert.ErrorIs(t, err, integration.ErrPlatformRequestFailed)
			assert.ErrorIs(t, err, tt.sentinel)

			var pe *integration.PlatformError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)

			var de *shared.DomainError
			require.ErrorAs(t, integration.ToDomainError(err), &de)
			assert.Equal(t, tt.domainCode, de.Code)
		})
	}

	t.Run("rejected carries the store message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"x","message":"Invalid parameter(s): line_items"}`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, AuthModeBasic)
		err := c.Post(context.Background(), "orders", map[string]string{}, nil)
		assert.Equal(t, "Invalid parameter(s): line_items", integration.ToDomainError(err).Error())
	})
}

func TestClient_TransportErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		serverURL := server.URL
		server.Close()

		c := newTestClient(t, serverURL, AuthModeBasic)
		_, err := c.Get(context.Background(), "products", nil, nil)
		assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		c := newTestClient(t, server.URL, AuthModeBasic, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		_, err := c.Get(context.Background(), "products", nil, nil)
		assert.ErrorIs(t, err, integration.ErrPlatformTimeout)
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, AuthModeBasic)
		var out map[string]any
		_, err := c.Get(context.Background(), "products", nil, &out)
		assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
	})
}

func TestListAll(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "false", r.URL.Query().Get("hide_empty"))
		page := r.URL.Query().Get("page")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		w.Header().Set("X-WP-TotalPages", "3")
		_, _ = w.Write([]byte(`[{"id":` + page + `}]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, AuthModeBasic)
	type item struct {
		ID int64 `json:"id"`
	}
	all, err := ListAll[item](context.Background(), c, "products/categories", url.Values{"hide_empty": {"false"}})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	assert.Equal(t, []item{{1}, {2}, {3}}, all)
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/wp-json/wc/v3"))
		_, _ = w.Write([]byte(`{"namespace":"wc/v3"}`))
	}))
	defer server.Close()

	assert.NoError(t, newTestClient(t, server.URL, AuthModeBasic).Ping(context.Background()))
}
