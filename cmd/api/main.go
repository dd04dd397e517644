package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/cache"
	"shopfront/internal/config"
	"shopfront/internal/coupon"
	"shopfront/internal/database"
	"shopfront/internal/events"
	"shopfront/internal/handler"
	"shopfront/internal/payment"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopfront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	cartCache, closeCache, err := newCartCache(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	// A nil interface disables online payments.
	var gateway service.PaymentGateway
	if cfg.Payment.Enabled {
		gateway = payment.NewClient(cfg.Payment, logger)
	} else {
		logger.Info().Msg("online payments disabled")
	}

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productService, cartCache, logger)
	couponService := service.NewCouponService(couponRepo, cartRepo, productService, cartCache, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, outboxRepo, gateway, cartCache, logger)

	if err := importCoupons(ctx, cfg, couponService, logger); err != nil {
		return err
	}

	// Start the outbox poller
	publisher := newPublisher(cfg.Kafka, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	poller := events.NewOutboxPoller(outboxRepo, publisher, cfg.Kafka.PollInterval, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	defer wg.Wait()
	defer cancel()

	// Initialize router
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Carts:    handler.NewCartHandler(cartService, couponService, logger),
		Coupons:  handler.NewCouponHandler(couponService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
	}, router.Options{
		Tokens:         auth.NewTokens(cfg.Auth.JWTSecret),
		WebhookSecret:  cfg.Auth.WebhookSecret,
		RequestTimeout: 30 * time.Second,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newCartCache connects to Redis when enabled and returns a no-op cache otherwise.
func newCartCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (cache.CartCache, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("cart cache disabled")
		return cache.NoopCache{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.TTL).Msg("cart cache connected")

	return cache.NewRedisCache(client, cfg.TTL), func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}, nil
}

// importCoupons upserts the configured coupon files, reading from S3 when enabled.
func importCoupons(ctx context.Context, cfg *config.Config, store coupon.Store, logger zerolog.Logger) error {
	if len(cfg.Coupons.ImportFiles) == 0 {
		return nil
	}

	fileLoader := coupon.NewFileLoader(logger)
	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	importer := coupon.NewImporter(coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger), store, logger)
	if _, err := importer.ImportFiles(ctx, cfg.Coupons.ImportFiles); err != nil {
		return fmt.Errorf("failed to import coupons: %w", err)
	}
	return nil
}

func newPublisher(cfg config.KafkaConfig, logger zerolog.Logger) events.Publisher {
	if cfg.Enabled {
		logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("publishing order events to kafka")
		return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
	}
	logger.Info().Msg("kafka disabled, order events will be logged")
	return events.NewLogPublisher(logger)
}
