package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/api"
	"github.com/jobpulse/notify/internal/config"
	"github.com/jobpulse/notify/internal/db"
	"github.com/jobpulse/notify/internal/dispatch"
	"github.com/jobpulse/notify/internal/metrics"
	"github.com/jobpulse/notify/internal/ratelimiter"
	"github.com/jobpulse/notify/internal/registry"
	"github.com/jobpulse/notify/internal/service"
	"github.com/jobpulse/notify/internal/store"
	"github.com/jobpulse/notify/internal/ws"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	st := store.NewPostgres(pool)
	connReg := registry.NewMemory()

	onDelivered, onFailed := m.DispatchHooks()
	dispatcher := dispatch.New(connReg, cfg.WSWriteTimeout, logger, dispatch.MetricHooks{
		OnDelivered: onDelivered,
		OnFailed:    onFailed,
	})

	limiter := ratelimiter.New(cfg.RateLimit)
	svc := service.NewNotificationService(st, dispatcher, limiter, logger)

	wsHandler := ws.NewHandler(connReg, ws.Options{
		WriteTimeout: cfg.WSWriteTimeout,
		PingInterval: cfg.WSPingInterval,
		SendBuffer:   cfg.WSSendBuffer,
	}, logger, m.SetRegistryStats)

	// ---- HTTP server ----
	router := api.NewRouter(cfg, svc, connReg, wsHandler, promReg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("ws_path", cfg.WSPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests and new upgrades.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Drain the push sessions; Shutdown above does not touch hijacked
	// websocket connections.
	wsHandler.Shutdown()

	logger.Info("server stopped cleanly")
}
