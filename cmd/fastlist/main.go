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

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/fastlist/pkg/async"
	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/config"
	"github.com/Sternrassler/fastlist/pkg/invalidation"
	"github.com/Sternrassler/fastlist/pkg/logging"
	"github.com/Sternrassler/fastlist/pkg/ratelimit"
	"github.com/Sternrassler/fastlist/pkg/store/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fastlist: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.LogLevel),
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "fastlist",
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Info().Stringer("config", cfg).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// lists fall back to the database until Redis answers
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable at startup")
	} else {
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}
	cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL, logging.NewLogger("postgres"))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	local := cache.NewMemoryStore()
	go local.RunJanitor(ctx, time.Minute)

	shared := cache.NewRedisStore(redisClient, cache.RedisOptions{OpTimeout: cfg.CacheOpTimeout})
	store := cache.NewTiered(local, shared, cfg.MemoryCacheTTL)

	runner := async.NewRunner(logging.NewLogger("async"), async.DefaultTimeout)
	inv := invalidation.NewService(store, invalidation.DefaultDependencies(), runner, logging.NewLogger("invalidation"))

	pool := db.Pool()
	app, err := newApp(appDeps{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		inv:      inv,
		limiter:  ratelimit.NewLimiter(redisClient, ratelimit.Config{PerMinute: cfg.RateLimitPerMinute, OpTimeout: cfg.CacheOpTimeout, TrustProxy: cfg.TrustProxy}, logging.NewLogger("ratelimit")),
		database: db,
		cache:    shared,
		logger:   logger,
		products: postgres.Products(pool, logger),
		vendors:  postgres.Vendors(pool, logger),
		clients:  postgres.Clients(pool, logger),
		wallets:  postgres.Wallets(pool, logger),
	})
	if err != nil {
		return err
	}

	if cfg.WarmPages > 0 {
		runner.Go(ctx, "warm:startup", func(ctx context.Context) error {
			return app.warmAll(ctx, cfg.WarmPages)
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting fastlist server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	// let pending cache writes and invalidations finish
	runner.Wait()
	logger.Info().Msg("Server stopped")
	return nil
}
