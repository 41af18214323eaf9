package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bdougie/vitals/internal/app/migrate"
	httpx "github.com/bdougie/vitals/internal/http"
	"github.com/bdougie/vitals/internal/repository"
	"github.com/bdougie/vitals/internal/repository/postgres"
	"github.com/bdougie/vitals/internal/repository/redisstore"
	"github.com/bdougie/vitals/internal/service/alerts"
	"github.com/bdougie/vitals/internal/service/dashboard"
	"github.com/bdougie/vitals/internal/service/ingest"
	"github.com/bdougie/vitals/internal/ws"
	"github.com/bdougie/vitals/pkg/config"
	"github.com/bdougie/vitals/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New("vitalsd", logger.ParseLevel(config.GetString("LOG_LEVEL", "info")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.Store
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		defer runner.Close()
		if err := runner.Ping(ctx); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		store = postgres.New(pool)
	case config.StoreBackendRedis:
		redisStore, err := redisstore.New(redisstore.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			SampleTTL:    cfg.SampleTTL,
			AggregateTTL: cfg.AggregateTTL,
			AlertTTL:     cfg.AlertTTL,
		})
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	default:
		log.Error("unknown store backend", "backend", cfg.StoreBackend)
		os.Exit(1)
	}

	hub := ws.NewHub()
	ingestSvc := ingest.New(store, store, hub, log, cfg.DeployID)
	dashboardSvc := dashboard.New(store, store, log)
	alertSvc := alerts.New(store, store, cfg.Thresholds, cfg.DeployID, cfg.DeployContext, cfg.EvalInterval, log)
	go alertSvc.Run(ctx)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, ingestSvc, dashboardSvc, alertSvc, hub, limiter, cfg.AdminToken, store.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("vitals server starting", "addr", cfg.Addr, "backend", cfg.StoreBackend)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("vitals server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
