package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bryanwahyu/automaton-scan-gate/internal/config"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-scan-gate/internal/middleware"
)

func serve(ctx context.Context, cfg *config.Config, a *app) int {
	checkers := map[string]middleware.HealthChecker{}
	if a.db != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: a.db}
	}
	health := middleware.NewHealth(checkers)

	// background runs tidak ikut cancel waktu SIGTERM, baru dibatalkan setelah grace period
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRuns()

	if len(cfg.Server.ClientKeys) == 0 {
		a.log.Warn("server.client_keys is empty, API authentication is disabled")
	}
	router := httpserver.NewRouter(runCtx, a.scans, a.log, httpserver.Options{
		ClientKeys:    cfg.Server.ClientKeys,
		CORSOrigins:   cfg.Server.CORSOrigins,
		RunsPerMinute: cfg.Server.RunsPerMinute,
		RunBurst:      cfg.Server.RunBurst,
		Health:        health,
		Metrics:       middleware.NewMetrics(),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.log.Errorw("server error", "error", err)
		return 1
	case <-ctx.Done():
	}

	// graceful shutdown
	a.log.Info("shutting down server...")
	health.Drain()

	grace := cfg.Server.ShutdownTimeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warnw("shutdown error", "error", err)
	}
	if err := router.Wait(shutdownCtx); err != nil {
		a.log.Warnw("in-flight runs still going, cancelling", "error", err)
		cancelRuns()
		finalCtx, cancelFinal := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelFinal()
		_ = router.Wait(finalCtx)
	}
	return 0
}
