package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"penjualan/backend/internal/cache"
	"penjualan/backend/internal/config"
	"penjualan/backend/internal/httpapi"
	"penjualan/backend/internal/logging"
	"penjualan/backend/internal/payments"
	"penjualan/backend/internal/sales"
	"penjualan/backend/internal/service"
	"penjualan/backend/internal/store"
	"penjualan/backend/internal/store/memory"
	mongostore "penjualan/backend/internal/store/mongo"
	pgstore "penjualan/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closers, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("repository unavailable", zap.Error(err))
	}

	methodCache := cache.PaymentMethodCache(cache.NoopPaymentMethodCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisPaymentMethodCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			methodCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("cache: noop")
	}

	gateway := payments.NewGateway(repo, methodCache, cfg.PaymentMethodCacheTTL(), logger)
	engine := sales.NewEngine(repo, gateway, repo, logger)
	svc := service.New(repo, engine, gateway, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		CookieSecure:  cfg.CookieSecure,
		AdminToken:    cfg.AdminToken,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("sales backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// openRepository picks postgres, then mongo, then the seeded in-memory store.
// A configured backend that cannot be reached is fatal.
func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Repository, []func() error, error) {
	closers := make([]func() error, 0, 2)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("repository: postgres")
		return pg, append(closers, pg.Close), nil
	case cfg.MongoURI != "":
		mg, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("mongodb unavailable and MONGODB_URI is set: %w", err)
		}
		if err := mg.Migrate(ctx); err != nil {
			_ = mg.Close()
			return nil, nil, fmt.Errorf("migrate mongodb: %w", err)
		}
		logger.Info("repository: mongodb", zap.String("database", cfg.MongoDatabase))
		return mg, append(closers, mg.Close), nil
	default:
		mem, err := memory.NewSeeded(logger)
		if err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		logger.Info("repository: in-memory")
		return mem, closers, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validateSecretStrength(cfg.AuthSecret); err != nil {
		return fmt.Errorf("AUTH_SECRET is too weak: %w", err)
	}
	if cfg.AdminToken == "" {
		return nil
	}
	if len(cfg.AdminToken) < 32 {
		return fmt.Errorf("ADMIN_API_TOKEN must be at least 32 characters when set")
	}
	if cfg.AdminToken == cfg.AuthSecret {
		return fmt.Errorf("ADMIN_API_TOKEN must differ from AUTH_SECRET")
	}
	if err := validateSecretStrength(cfg.AdminToken); err != nil {
		return fmt.Errorf("ADMIN_API_TOKEN is too weak: %w", err)
	}
	return nil
}

// validateSecretStrength rejects secrets made of one repeated character or
// copied from a placeholder.
func validateSecretStrength(secret string) error {
	lower := strings.ToLower(secret)
	for _, placeholder := range []string{"change-me", "changeme", "replace-me", "your-secret"} {
		if strings.Contains(lower, placeholder) {
			return fmt.Errorf("placeholder secret not allowed")
		}
	}

	allSame := true
	for i := 1; i < len(secret); i++ {
		if secret[i] != secret[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character secret not allowed")
	}
	return nil
}
