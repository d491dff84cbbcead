package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-checkout/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "checkout",
		Short:        "Shop checkout service: carts, orders, payments and placed orders",
		SilenceUsage: true,
	}

	var seed bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the checkout schema in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), seed)
		},
	}
	migrateCmd.Flags().BoolVar(&seed, "seed", false, "Load the sample catalog, stock and tax rules")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the checkout HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	return root
}

func migrate(ctx context.Context, seed bool) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.ServiceName, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := openSQL(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return runMigrations(ctx, db, seed, logger)
}

func serve(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.ServiceName, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.OTLPEndpoint,
	}

	// Initialize OpenTelemetry
	tp, err := telemetry.InitTracer(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	mp, err := telemetry.InitMetrics(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logger.Warn("Error shutting down meter", zap.Error(err))
		}
	}()

	dbPool, err := initDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	// Initialize dependencies
	repository := NewPostgresRepository(dbPool)
	tracer := tp.Tracer(cfg.ServiceName)

	var notifier NotificationGateway
	if cfg.NotificationsMode == notificationsModeLog {
		notifier = NewLogNotificationGateway(logger)
	} else {
		notifier = NewDTMNotificationGateway(cfg.DTMServer, cfg.NotificationsServiceURL)
	}

	catalog := NewCatalogUseCase(repository, cfg.PricePolicy, tracer, logger)
	carts := NewCartUseCase(repository, cfg.PricePolicy, DefaultRetryPolicy, tracer, logger)
	checkout, err := NewCheckoutUseCase(
		repository,
		carts,
		UUIDOrderNumberGenerator{},
		NewSimulatedPaymentGateway(),
		notifier,
		CheckoutOptions{
			PaymentTimeout:    cfg.PaymentTimeout,
			PaymentMaxRetries: cfg.PaymentMaxRetries,
			Retry:             DefaultRetryPolicy,
		},
		mp.Meter(cfg.ServiceName),
		tracer,
		logger,
	)
	if err != nil {
		return err
	}
	handler := NewCheckoutHandler(catalog, carts, checkout)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(cfg.ServiceName))
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Checkout Service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("ℹ️ Shutting down checkout service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initDB(ctx context.Context, cfg DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.PoolDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			logger.Info("✅ Connected to checkout database with connection pool")
			return pool, nil
		}
		logger.Info("⏳ Waiting for database...", zap.Int("attempt", i+1), zap.Int("max", 30))
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}
