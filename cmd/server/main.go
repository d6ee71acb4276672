package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpHandlers "github.com/JeanGrijp/sliding-window-limiter/internal/adapters/http/handlers"
	httpMiddleware "github.com/JeanGrijp/sliding-window-limiter/internal/adapters/http/middleware"
	memorylock "github.com/JeanGrijp/sliding-window-limiter/internal/adapters/lock/memory"
	redislock "github.com/JeanGrijp/sliding-window-limiter/internal/adapters/lock/redis"
	"github.com/JeanGrijp/sliding-window-limiter/internal/adapters/metrics"
	memorystorage "github.com/JeanGrijp/sliding-window-limiter/internal/adapters/storage/memory"
	redisstorage "github.com/JeanGrijp/sliding-window-limiter/internal/adapters/storage/redis"
	"github.com/JeanGrijp/sliding-window-limiter/internal/config"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/ports"
	"github.com/JeanGrijp/sliding-window-limiter/internal/core/services"
	"github.com/JeanGrijp/sliding-window-limiter/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, locker, closeFn, err := initStorage(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to init storage", zap.Error(err))
	}
	defer closeFn()

	service, err := services.NewRateLimiterService(storage, services.Config{
		Limit:           cfg.RateLimiter.Limit,
		IntervalSeconds: cfg.RateLimiter.IntervalSeconds,
		Locker:          locker,
		Logger:          lg.Named("limiter"),
	})
	if err != nil {
		lg.Fatal("failed to create limiter", zap.Error(err))
	}

	collectors, err := metrics.NewCollectors(metrics.Options{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		lg.Fatal("failed to register metrics", zap.Error(err))
	}
	limiter := metrics.NewInstrumentedLimiter(service, collectors)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/limits", httpHandlers.NewLimitsHandler(limiter, lg.Named("http")).Routes())
	r.Group(func(r chi.Router) {
		r.Use(httpMiddleware.NewRateLimiterMiddleware(limiter, httpMiddleware.Options{
			APIKeyHeader: cfg.RateLimiter.APIKeyHeader,
			Logger:       lg.Named("http"),
		}))
		r.Get("/test", httpHandlers.TestHandler)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	lg.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("storage", cfg.Storage.Type),
		zap.Int("limit", cfg.RateLimiter.Limit),
		zap.Int("interval_seconds", cfg.RateLimiter.IntervalSeconds),
	)

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}

func initStorage(ctx context.Context, cfg config.Config, lg *zap.Logger) (ports.Storage, ports.Locker, func(), error) {
	switch cfg.Storage.Type {
	case "redis":
		redisCfg := redisstorage.Config{
			Addr:      fmt.Sprintf("%s:%d", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		}
		storage, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		locker := redislock.New(storage.Client(), redislock.Config{TTL: cfg.RateLimiter.LockTTL}, lg.Named("lock"))
		return storage, locker, func() {
			if err := storage.Close(); err != nil {
				lg.Error("failed to close redis storage", zap.Error(err))
			}
		}, nil
	case "memory":
		storage := memorystorage.New()
		storage.StartJanitor(ctx, cfg.Storage.SweepInterval)
		return storage, memorylock.New(), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
