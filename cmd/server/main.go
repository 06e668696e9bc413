package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	marketingapp "github.com/storefront/backend/internal/application/marketing"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	salesapp "github.com/storefront/backend/internal/application/sales"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/migration"
	paymentinfra "github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/infrastructure/woocommerce"
	"github.com/storefront/backend/internal/infrastructure/wordpress"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	telemetryCfg := telemetry.ConfigFrom(cfg.Telemetry)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	businessMetrics, err := telemetry.NewBusinessMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Cache and idempotency store
	cacheFactory := cache.NewFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log))
	var responseCache shared.Cache
	if cfg.Cache.Enabled {
		if responseCache, err = cacheFactory.Cache(ctx); err != nil {
			log.Fatal("Failed to create response cache", zap.Error(err))
		}
	}
	idempotency, err := cacheFactory.IdempotencyStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Payment journal
	db, err := openJournal(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open payment journal", zap.Error(err))
	}
	journal := persistence.NewPaymentTransactionRepository(db.DB)

	// Platform adapters
	wcClient, err := woocommerce.NewClient(woocommerce.Config{
		BaseURL:        cfg.WooCommerce.BaseURL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
		AuthMode:       woocommerce.AuthMode(cfg.WooCommerce.AuthMode),
		APIVersion:     cfg.WooCommerce.APIVersion,
		TimeoutSeconds: int(cfg.WooCommerce.Timeout.Seconds()),
	}, log)
	if err != nil {
		log.Fatal("Invalid WooCommerce configuration", zap.Error(err))
	}
	store := woocommerce.NewAdapter(wcClient, cfg.Shop.Currency)

	newsletter, err := wordpress.NewNewsletterAdapter(wordpress.Config{
		BaseURL:             cfg.WordPress.BaseURL,
		NewsletterPath:      cfg.WordPress.NewsletterPath,
		ClientKey:           cfg.WordPress.NewsletterClientKey,
		ClientSecret:        cfg.WordPress.NewsletterClientSecret,
		Username:            cfg.WordPress.Username,
		ApplicationPassword: cfg.WordPress.ApplicationPassword,
		TimeoutSeconds:      int(cfg.WordPress.Timeout.Seconds()),
	}, nil, log)
	if err != nil {
		log.Fatal("Invalid WordPress configuration", zap.Error(err))
	}

	izipay, err := paymentinfra.NewIzipayAdapter(paymentinfra.IzipayConfig{
		ShopID:         cfg.Izipay.ShopID,
		Password:       cfg.Izipay.Password,
		HMACKey:        cfg.Izipay.HMACKey,
		PublicKey:      cfg.Izipay.PublicKey,
		APIBaseURL:     cfg.Izipay.APIBaseURL,
		Currency:       cfg.Izipay.Currency,
		Mode:           cfg.Izipay.Mode,
		IPNURL:         cfg.Izipay.IPNURL,
		TimeoutSeconds: int(cfg.Izipay.Timeout.Seconds()),
	}, nil, log)
	if err != nil {
		log.Fatal("Invalid Izipay configuration", zap.Error(err))
	}

	orderTokens, err := auth.NewOrderTokenService(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to create order token service", zap.Error(err))
	}

	// Domain events: in-process metrics first, then Kafka or the log
	dispatcher := event.NewDispatcher(newDownstreamPublisher(cfg, log), log)
	dispatcher.Subscribe(businessMetrics)

	// Application services
	catalogService := catalogapp.NewCatalogService(store, store, store, responseCache, catalogapp.CacheTTL{
		Products:   cfg.Cache.CatalogTTL,
		Categories: cfg.Cache.CategoryTTL,
	}, log)
	catalogService.SetCacheMetrics(businessMetrics)

	cartService := salesapp.NewCartService(store, store, store, responseCache, cfg.Shop, log)
	cartService.SetCouponMetrics(businessMetrics)

	orderService := salesapp.NewOrderService(salesapp.OrderServiceConfig{
		Cart:      cartService,
		Orders:    store,
		Gateway:   izipay,
		Tokens:    orderTokens,
		Journal:   journal,
		NotifyURL: cfg.Izipay.IPNURL,
		Logger:    log,
	})
	orderService.SetEventPublisher(dispatcher)

	ipnService := paymentapp.NewIPNService(paymentapp.IPNServiceConfig{
		Gateway:          izipay,
		Orders:           store,
		Journal:          journal,
		Idempotency:      idempotency,
		CurrencyDecimals: cfg.Shop.CurrencyDecimals,
		Logger:           log,
	})
	ipnService.SetEventPublisher(dispatcher)

	newsletterService := marketingapp.NewNewsletterService(newsletter, log)
	newsletterService.SetEventPublisher(dispatcher)

	// HTTP
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion)
	systemHandler.AddProbe("woocommerce", store)
	systemHandler.AddProbe("database", db)
	if responseCache != nil {
		systemHandler.AddProbe("cache", responseCache)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.Telemetry.Enabled {
		engine.Use(
			middleware.TracingWithConfig(middleware.TracingConfig{
				ServiceName: cfg.Telemetry.ServiceName,
				Enabled:     true,
			}),
			middleware.SpanEnricher(),
		)
	}
	engine.Use(middleware.HTTPMetrics(meter, log))

	var lookupLimit gin.HandlerFunc
	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		lookupLimit = middleware.RateLimit(limiter)
	}

	r := router.NewRouter(engine)
	router.RegisterStorefront(r, router.Handlers{
		System:     systemHandler,
		Catalog:    handler.NewCatalogHandler(catalogService),
		Cart:       handler.NewCartHandler(cartService),
		Order:      handler.NewOrderHandler(orderService),
		Payment:    handler.NewPaymentHandler(ipnService),
		Newsletter: handler.NewNewsletterHandler(newsletterService),
		Webhook:    handler.NewWebhookHandler(catalogService, cfg.WooCommerce.WebhookSecret),
	}, lookupLimit)
	r.Setup()
	log.Debug("Routes registered", zap.Int("count", len(r.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if limiter != nil {
		limiter.Close()
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := dispatcher.Close(); err != nil {
		log.Error("Error closing event publisher", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := cacheFactory.Close(); err != nil {
		log.Error("Error closing cache", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openJournal connects the payment journal and brings its schema up to date
func openJournal(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	db, err := persistence.NewDatabase(cfg.Database, log, logger.GormLevel(cfg.Log.Level))
	if err != nil {
		return nil, err
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled,
		DBSystem: telemetry.DBSystemFor(cfg.Database.Driver),
	}, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	if !cfg.Database.AutoMigrate {
		return db, nil
	}
	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	m, err := migration.New(ctx, sqlDB, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	defer func() {
		_ = m.Close()
	}()
	if err := m.Up(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newDownstreamPublisher returns the Kafka publisher when events are enabled.
// A Kafka misconfiguration degrades to the log publisher so checkout keeps working.
func newDownstreamPublisher(cfg *config.Config, log *zap.Logger) shared.EventPublisher {
	if !cfg.Events.Enabled {
		return event.NewLogPublisher(log)
	}
	publisher, err := event.NewKafkaPublisher(cfg.Events, event.NewStorefrontSerializer(cfg.App.Name), log)
	if err != nil {
		log.Error("Kafka publisher unavailable, logging events instead", zap.Error(err))
		return event.NewLogPublisher(log)
	}
	log.Info("Publishing domain events to Kafka",
		zap.Strings("brokers", cfg.Events.Brokers),
		zap.String("topic", cfg.Events.Topic),
	)
	return publisher
}
