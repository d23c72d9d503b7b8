// Command sandbox runs the local PayPath backend: every endpoint the client
// speaks, with in-memory persistence by default, Postgres when DATABASE_URL is
// set, and Redis-backed login challenges when REDIS_URL is set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/paypath/paypath/internal/infra"
	"github.com/paypath/paypath/internal/logging"
	"github.com/paypath/paypath/internal/sandbox"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(getEnv("LOG_LEVEL", "info"))

	cfg := sandbox.Config{
		Address:         getEnv("SANDBOX_ADDR", ":8080"),
		Domain:          getEnv("SANDBOX_DOMAIN", "paypath.app"),
		JWTSecret:       getEnv("SANDBOX_JWT_SECRET", "dev-secret-do-not-use"),
		TreasuryAddress: os.Getenv("SANDBOX_TREASURY_ADDRESS"),
	}

	ctx := context.Background()

	store, cleanup, err := buildStore(ctx)
	if err != nil {
		logger.Error("build store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	nonces, cache, cleanupNonces, err := buildNonces(ctx)
	if err != nil {
		logger.Error("build nonce store", "error", err)
		os.Exit(1)
	}
	defer cleanupNonces()

	var opts []sandbox.Option
	if cache != nil {
		opts = append(opts, sandbox.WithCache(cache))
	}
	srv := sandbox.New(cfg, store, nonces, logger, opts...)

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("sandbox listening", "address", cfg.Address)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("sandbox exited cleanly")
}

func buildStore(ctx context.Context) (sandbox.Store, func(), error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return sandbox.NewMemoryStore(), func() {}, nil
	}
	pool, err := infra.NewPostgresPool(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := sandbox.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store, pool.Close, nil
}

// buildNonces also hands back the Redis client, when one is configured, so
// the server can reuse it for rate limiting and idempotency.
func buildNonces(ctx context.Context) (sandbox.Nonces, *redis.Client, func(), error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return sandbox.NewMemoryNonces(5 * time.Minute), nil, func() {}, nil
	}
	client, err := infra.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return sandbox.NewRedisNonces(client, 5*time.Minute), client, func() { _ = client.Close() }, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
