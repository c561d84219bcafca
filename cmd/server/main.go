package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/infrastructure/config"
	"github.com/meterbill/backend/internal/infrastructure/event"
	"github.com/meterbill/backend/internal/infrastructure/lock"
	"github.com/meterbill/backend/internal/infrastructure/logger"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/internal/infrastructure/printing"
	"github.com/meterbill/backend/internal/infrastructure/scheduler"
	"github.com/meterbill/backend/internal/infrastructure/seed"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"github.com/meterbill/backend/internal/interfaces/http/handler"
	"github.com/meterbill/backend/internal/interfaces/http/middleware"
	"github.com/meterbill/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// Bootstrap logger, replaced below once the OTLP log core is known
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(logCfg, telemetry.NewZapOTELCore(logProvider, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting MeterBill",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.PyroscopeUser,
		BasicAuthPassword: cfg.Telemetry.PyroscopePassword,
		ProfileTypes:      cfg.Telemetry.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
			logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
		),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	locker, closeLocker := newLocker(cfg, log)
	defer closeLocker()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	metrics := telemetry.NewBillingMetrics(true)
	if meterProvider.IsEnabled() {
		if err := metrics.Export(meterProvider.Meter("github.com/meterbill/backend/billing")); err != nil {
			log.Warn("Failed to export business metrics over OTLP", zap.Error(err))
		}
	}
	if err := db.RegisterPoolMetrics(metrics.Registry(), cfg.Database.DBName); err != nil {
		log.Warn("Failed to register connection pool metrics", zap.Error(err))
	}

	bus := event.NewBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log,
		billing.EventTypePaymentRecorded,
		billing.EventTypeWalletCredited,
		billing.EventTypeWalletDebited,
		billing.EventTypeInvoiceCancelled,
	))

	billingCfg := appbilling.Config{
		VATRate:             cfg.Billing.VATRate,
		OutlierMultiplier:   cfg.Billing.OutlierMultiplier,
		TrailingWindow:      cfg.Billing.TrailingWindow,
		MinApprovedReadings: cfg.Billing.MinApprovedReadings,
		OverpaymentPolicy:   billing.OverpaymentPolicy(cfg.Billing.OverpaymentPolicy),
		PricingFallback:     billing.FallbackPolicy(cfg.Billing.PricingFallback),
		MaxRetries:          cfg.Billing.MaxRetries,
		Currency:            cfg.Billing.Currency,
	}
	opts := []appbilling.Option{
		appbilling.WithLogger(log),
		appbilling.WithLocker(locker),
		appbilling.WithMetrics(metrics),
		appbilling.WithEventPublisher(bus),
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	periodService := appbilling.NewPeriodService(scope, billingCfg, opts...)
	readingService := appbilling.NewReadingService(scope, billingCfg, opts...)
	invoiceService := appbilling.NewInvoiceService(scope, billingCfg,
		printing.NewInvoicePDF(printing.InvoicePDFConfig{CompanyName: cfg.App.Name, Currency: billingCfg.Currency}), opts...)
	paymentService := appbilling.NewPaymentService(scope, billingCfg, opts...)
	walletService := appbilling.NewWalletService(scope, billingCfg, opts...)
	overdueService := appbilling.NewOverdueService(scope, billingCfg, printing.NewOverdueXLSX(), opts...)
	pricingService := appbilling.NewPricingService(scope, billingCfg, opts...)
	masterDataService := appbilling.NewMasterDataService(scope, billingCfg, opts...)

	if _, err := seed.SeedPricing(context.Background(), pricingService, cfg.Billing.PricingSeedFile, log); err != nil {
		log.Fatal("Failed to seed pricing rules", zap.Error(err))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Open the server span
	// 4. Logger - Log requests with trace fields
	// 5. Metrics - Count and time requests per route
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Profiling(profiler.IsEnabled(), "/metrics", "/health"))
	if cfg.Telemetry.MetricsEnabled {
		httpMetrics := middleware.NewHTTPMetrics(metrics.Registry(), "/metrics", "/health")
		engine.Use(httpMetrics.Middleware())
	}
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check and metrics endpoints (outside API versioning)
	engine.GET("/health", healthHandler(db))
	if cfg.Telemetry.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.NewBillingRoutes(router.BillingHandlers{
		Periods:    handler.NewPeriodHandler(periodService, invoiceService),
		Readings:   handler.NewReadingHandler(readingService),
		Invoices:   handler.NewInvoiceHandler(invoiceService),
		Payments:   handler.NewPaymentHandler(paymentService),
		Wallets:    handler.NewWalletHandler(walletService),
		Overdue:    handler.NewOverdueHandler(overdueService),
		Pricing:    handler.NewPricingHandler(pricingService),
		MasterData: handler.NewMasterDataHandler(masterDataService),
	}))
	r.Register(router.NewSystemRoutes(handler.NewSystemHandler(version, billingCfg)))
	r.Setup()

	sweeperCfg := scheduler.DefaultOverdueSweeperConfig()
	sweeperCfg.Interval = cfg.Billing.OverdueSweepInterval
	sweeper := scheduler.NewOverdueSweeper(invoiceService, log, sweeperCfg)
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start overdue sweeper", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(ctx); err != nil {
		log.Error("Overdue sweeper did not stop cleanly", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Failed to flush metrics", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Failed to stop profiler", zap.Error(err))
	}
	if err := logProvider.Shutdown(ctx); err != nil {
		log.Error("Failed to flush logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newLocker picks the lock backend. Redis is required once more than one
// instance serves the same database.
func newLocker(cfg *config.Config, log *zap.Logger) (appbilling.Locker, func()) {
	if cfg.Lock.Backend != "redis" {
		log.Info("Using in-process locks", zap.Duration("wait", cfg.Lock.Wait))
		return lock.NewMemoryLocker(cfg.Lock.Wait), func() {}
	}

	client, err := lock.NewRedisClient(context.Background(), cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to lock backend", zap.Error(err))
	}
	log.Info("Using Redis locks", zap.String("addr", cfg.Redis.Addr()))
	locker := lock.NewRedisLocker(client, lock.RedisConfig{
		KeyPrefix: "meterbill:lock:",
		TTL:       cfg.Lock.TTL,
		Wait:      cfg.Lock.Wait,
	}, logger.ForComponent(log, "lock"))
	return locker, func() {
		if err := client.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}
}

// healthHandler reports database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
