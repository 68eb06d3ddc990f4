package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"internship-portal/internal/bootstrap"
	"internship-portal/internal/shared/config"
	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/server"
	"internship-portal/internal/shared/storage/db"
	"internship-portal/internal/shared/telemetry"
	"internship-portal/internal/workerproc"
)

func main() {
	cfg := config.Load()
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	if app.DB != nil && cfg.Env != "production" {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
	}

	// With the memory backend nothing else can consume, so the API runs the pipeline itself.
	var background sync.WaitGroup
	workCtx, stopWork := context.WithCancel(context.Background())
	if app.MemoryQueue != nil {
		background.Add(2)
		go func() {
			defer background.Done()
			app.MemoryQueue.Run(workCtx, cfg.WorkerConcurrency, workerproc.Handler(app.AnalysesService, "memory"))
		}()
		go func() {
			defer background.Done()
			_ = app.Sweeper.Run(workCtx)
		}()
		telemetry.Info("api.inprocess_worker_started", map[string]any{"concurrency": cfg.WorkerConcurrency})
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		telemetry.Info("api.listening", map[string]any{"addr": srv.Addr, "env": cfg.Env, "queue": cfg.QueueBackend})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			telemetry.Error("api.serve_failed", map[string]any{"error": err.Error()})
		}
	}

	telemetry.Info("api.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Warn("api.http_shutdown_failed", map[string]any{"error": err.Error()})
	}

	stopWork()
	done := make(chan struct{})
	go func() {
		background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		telemetry.Warn("api.shutdown_timeout", map[string]any{"detail": "exiting with in-flight jobs"})
	}
}
