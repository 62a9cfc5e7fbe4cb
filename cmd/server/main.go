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
	"go.uber.org/zap"

	"estoque/internal/cache"
	"estoque/internal/config"
	"estoque/internal/events"
	"estoque/internal/httpapi"
	"estoque/internal/logging"
	"estoque/internal/metrics"
	"estoque/internal/service"
	"estoque/internal/store"
	"estoque/internal/store/memory"
	"estoque/internal/store/sqlstore"
	"estoque/internal/validation"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		dialect, _ := sqlstore.ParseDialect(cfg.DatabaseDriver)
		db, err := sqlstore.New(ctx, dialect, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database unavailable and DATABASE_URL is set; refusing to start with in-memory fallback",
				zap.String("driver", string(dialect)), zap.Error(err))
		}
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
		repo = db
		closers = append(closers, db.Close)
		logger.Info("repository: sql", zap.String("driver", string(dialect)))
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	summaryCache := cache.SummaryCache(cache.NoopSummaryCache{})
	var bus events.Bus = events.NewLocalBus()
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, using noop cache and local events", zap.Error(err))
			_ = client.Close()
		} else {
			summaryCache = cache.NewRedisSummaryCache(client, "estoque:")
			redisBus := events.NewRedisBus(client, cfg.EventsChannel, logger)
			if err := redisBus.Start(context.Background()); err != nil {
				logger.Warn("redis event channel unavailable, using local events", zap.Error(err))
			} else {
				bus = redisBus
				closers = append(closers, redisBus.Close)
			}
			closers = append(closers, client.Close)
			logger.Info("cache: redis", zap.String("channel", cfg.EventsChannel))
		}
	} else {
		logger.Info("cache: noop")
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	svc := service.New(repo, service.Options{
		Cache:      summaryCache,
		SummaryTTL: cfg.SummaryTTL(),
		Bus:        bus,
		Metrics:    m,
		Logger:     logger,
		Location:   loc,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.New(svc, cfg.AllowedOrigin, m, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("estoque api listening", zap.String("addr", cfg.Address()))
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

func validateConfig(cfg config.Config) error {
	if cfg.DatabaseURL != "" {
		if _, err := sqlstore.ParseDialect(cfg.DatabaseDriver); err != nil {
			return fmt.Errorf("DATABASE_DRIVER: %w", err)
		}
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if _, err := validation.ParsePolicy(cfg.WeightFloorPolicy); err != nil {
		return fmt.Errorf("WEIGHT_FLOOR_POLICY: %w", err)
	}
	if cfg.IsProduction() && cfg.AllowedOrigin == "*" {
		return errors.New("ALLOWED_ORIGIN must name an origin in production")
	}
	return nil
}
