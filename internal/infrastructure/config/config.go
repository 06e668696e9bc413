package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	WooCommerce WooCommerceConfig
	WordPress   WordPressConfig
	Izipay      IzipayConfig
	Shop        ShopConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Events      EventsConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction returns true when running with app.env=production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string

	// RateLimitRequests bounds order tracking and newsletter signups per client and window; 0 disables it
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// WooCommerceConfig holds the WooCommerce REST API settings
type WooCommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	AuthMode       string // auto, oauth1, basic
	APIVersion     string
	Timeout        time.Duration
	WebhookSecret  string
}

// WordPressConfig holds the WordPress REST API settings used for the newsletter
type WordPressConfig struct {
	BaseURL                string
	Username               string
	ApplicationPassword    string
	NewsletterPath         string
	NewsletterClientKey    string
	NewsletterClientSecret string
	Timeout                time.Duration
}

// IzipayConfig holds the Izipay (Lyra) REST API settings
type IzipayConfig struct {
	ShopID     string
	Password   string
	HMACKey    string
	PublicKey  string
	APIBaseURL string
	Currency   string
	Mode       string // TEST, PRODUCTION
	IPNURL     string
	Timeout    time.Duration
}

// ShopConfig holds storefront pricing settings
type ShopConfig struct {
	Currency         string
	CurrencyDecimals int32
	// FreeShippingThreshold of zero disables the threshold
	FreeShippingThreshold decimal.Decimal
	// FreeShippingZoneID, when positive, reads the threshold from the zone's free shipping method
	FreeShippingZoneID          int64
	FreeShippingIgnoreDiscounts bool
	FlatRateShipping            decimal.Decimal
	FlatRateTitle               string
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Enabled             bool
	Driver              string // redis, memory
	CatalogTTL          time.Duration
	CategoryTTL         time.Duration
	AllowMemoryFallback bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig holds the payment journal database settings
type DatabaseConfig struct {
	Driver          string // sqlite, postgres
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	AutoMigrate     bool
}

// JWTConfig holds order tracking token settings
type JWTConfig struct {
	Secret        string
	Issuer        string
	OrderTokenTTL time.Duration
}

// EventsConfig holds the domain event publisher settings
type EventsConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces and metrics
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
}

// Load loads configuration from a .env file, TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_WOOCOMMERCE_CONSUMER_KEY)
// 2. .env file (never overrides variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.storefront")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true cannot be told apart from "unset" in applyDefaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.allow_memory_fallback", true)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("http.rate_limit_requests", 10)

	threshold, err := getDecimal(v, "shop.free_shipping_threshold")
	if err != nil {
		return nil, err
	}
	flatRate, err := getDecimal(v, "shop.flat_rate_shipping")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allowed_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allowed_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allowed_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		WooCommerce: WooCommerceConfig{
			BaseURL:        v.GetString("woocommerce.base_url"),
			ConsumerKey:    v.GetString("woocommerce.consumer_key"),
			ConsumerSecret: v.GetString("woocommerce.consumer_secret"),
			AuthMode:       v.GetString("woocommerce.auth_mode"),
			APIVersion:     v.GetString("woocommerce.api_version"),
			Timeout:        v.GetDuration("woocommerce.timeout"),
			WebhookSecret:  v.GetString("woocommerce.webhook_secret"),
		},
		WordPress: WordPressConfig{
			BaseURL:                v.GetString("wordpress.base_url"),
			Username:               v.GetString("wordpress.username"),
			ApplicationPassword:    v.GetString("wordpress.application_password"),
			NewsletterPath:         v.GetString("wordpress.newsletter_path"),
			NewsletterClientKey:    v.GetString("wordpress.newsletter_client_key"),
			NewsletterClientSecret: v.GetString("wordpress.newsletter_client_secret"),
			Timeout:                v.GetDuration("wordpress.timeout"),
		},
		Izipay: IzipayConfig{
			ShopID:     v.GetString("izipay.shop_id"),
			Password:   v.GetString("izipay.password"),
			HMACKey:    v.GetString("izipay.hmac_key"),
			PublicKey:  v.GetString("izipay.public_key"),
			APIBaseURL: v.GetString("izipay.api_base_url"),
			Currency:   v.GetString("izipay.currency"),
			Mode:       v.GetString("izipay.mode"),
			IPNURL:     v.GetString("izipay.ipn_url"),
			Timeout:    v.GetDuration("izipay.timeout"),
		},
		Shop: ShopConfig{
			Currency:                    v.GetString("shop.currency"),
			CurrencyDecimals:            v.GetInt32("shop.currency_decimals"),
			FreeShippingThreshold:       threshold,
			FreeShippingZoneID:          v.GetInt64("shop.free_shipping_zone_id"),
			FreeShippingIgnoreDiscounts: v.GetBool("shop.free_shipping_ignore_discounts"),
			FlatRateShipping:            flatRate,
			FlatRateTitle:               v.GetString("shop.flat_rate_title"),
		},
		Cache: CacheConfig{
			Enabled:             v.GetBool("cache.enabled"),
			Driver:              v.GetString("cache.driver"),
			CatalogTTL:          v.GetDuration("cache.catalog_ttl"),
			CategoryTTL:         v.GetDuration("cache.category_ttl"),
			AllowMemoryFallback: v.GetBool("cache.allow_memory_fallback"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("jwt.secret"),
			Issuer:        v.GetString("jwt.issuer"),
			OrderTokenTTL: v.GetDuration("jwt.order_token_ttl"),
		},
		Events: EventsConfig{
			Enabled:  v.GetBool("events.enabled"),
			Brokers:  v.GetStringSlice("events.brokers"),
			Topic:    v.GetString("events.topic"),
			ClientID: v.GetString("events.client_id"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number, got %q", key, raw)
	}
	return d, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// NOTE: CORS origins get no fallback. An empty list allows no cross-origin requests.
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "X-Order-Token"}
	}

	cfg.WooCommerce.BaseURL = strings.TrimRight(cfg.WooCommerce.BaseURL, "/")
	if cfg.WooCommerce.AuthMode == "" {
		cfg.WooCommerce.AuthMode = "auto"
	}
	if cfg.WooCommerce.APIVersion == "" {
		cfg.WooCommerce.APIVersion = "wc/v3"
	}
	if cfg.WooCommerce.Timeout == 0 {
		cfg.WooCommerce.Timeout = 15 * time.Second
	}

	if cfg.WordPress.BaseURL == "" {
		cfg.WordPress.BaseURL = cfg.WooCommerce.BaseURL
	}
	cfg.WordPress.BaseURL = strings.TrimRight(cfg.WordPress.BaseURL, "/")
	if cfg.WordPress.NewsletterPath == "" {
		cfg.WordPress.NewsletterPath = "/wp-json/newsletter/v2/subscribers"
	}
	if cfg.WordPress.Timeout == 0 {
		cfg.WordPress.Timeout = cfg.WooCommerce.Timeout
	}

	if cfg.Izipay.APIBaseURL == "" {
		cfg.Izipay.APIBaseURL = "https://api.micuentaweb.pe"
	}
	if cfg.Izipay.Currency == "" {
		cfg.Izipay.Currency = "PEN"
	}
	if cfg.Izipay.Mode == "" {
		cfg.Izipay.Mode = "TEST"
	}
	cfg.Izipay.Mode = strings.ToUpper(cfg.Izipay.Mode)
	if cfg.Izipay.Timeout == 0 {
		cfg.Izipay.Timeout = 20 * time.Second
	}

	if cfg.Shop.Currency == "" {
		cfg.Shop.Currency = cfg.Izipay.Currency
	}
	if cfg.Shop.CurrencyDecimals == 0 {
		cfg.Shop.CurrencyDecimals = 2
	}
	if cfg.Shop.FlatRateTitle == "" {
		cfg.Shop.FlatRateTitle = "Flat rate"
	}

	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Cache.CatalogTTL == 0 {
		cfg.Cache.CatalogTTL = 5 * time.Minute
	}
	if cfg.Cache.CategoryTTL == 0 {
		cfg.Cache.CategoryTTL = 30 * time.Minute
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "storefront.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}

	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "storefront-backend"
	}
	if cfg.JWT.OrderTokenTTL == 0 {
		cfg.JWT.OrderTokenTTL = 30 * 24 * time.Hour
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "storefront.events"
	}
	if cfg.Events.ClientID == "" {
		cfg.Events.ClientID = cfg.App.Name
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.WooCommerce.BaseURL == "" {
		return fmt.Errorf("woocommerce.base_url is required")
	}
	if u, err := url.Parse(c.WooCommerce.BaseURL); err != nil || u.Host == "" {
		return fmt.Errorf("woocommerce.base_url must be an absolute URL, got %q", c.WooCommerce.BaseURL)
	}
	if c.WooCommerce.ConsumerKey == "" || c.WooCommerce.ConsumerSecret == "" {
		return fmt.Errorf("woocommerce.consumer_key and woocommerce.consumer_secret are required")
	}
	switch c.WooCommerce.AuthMode {
	case "auto", "oauth1", "basic":
	default:
		return fmt.Errorf("woocommerce.auth_mode must be one of auto, oauth1, basic, got %q", c.WooCommerce.AuthMode)
	}

	if c.Izipay.Mode != "TEST" && c.Izipay.Mode != "PRODUCTION" {
		return fmt.Errorf("izipay.mode must be TEST or PRODUCTION, got %q", c.Izipay.Mode)
	}

	if c.Shop.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("shop.free_shipping_threshold cannot be negative")
	}
	if c.Shop.FlatRateShipping.IsNegative() {
		return fmt.Errorf("shop.flat_rate_shipping cannot be negative")
	}
	if c.Shop.CurrencyDecimals < 0 || c.Shop.CurrencyDecimals > 4 {
		return fmt.Errorf("shop.currency_decimals must be between 0 and 4")
	}

	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("cache.driver must be redis or memory, got %q", c.Cache.Driver)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}

	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events.enabled is true")
	}

	// Production-specific validations
	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allowed_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Database.Driver == "sqlite" {
			return fmt.Errorf("database.driver cannot be sqlite in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// PostgresDSN returns the postgres connection string with properly escaped values.
// An explicit database.dsn wins over the individual fields.
func (d *DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
