// Artwiki Worker — выполняет workflow из очереди.
//
// Worker:
//   - Получает workflow.submitted из RabbitMQ
//   - Выполняет шаги через orchestrator (каждый шаг — job)
//   - Публикует workflow.completed и job.completed
//   - По расписанию закрывает брошенные RUNNING jobs (reaper)
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/artwiki/internal/app"
	"github.com/shaiso/artwiki/internal/config"
	"github.com/shaiso/artwiki/internal/mq"
	"github.com/shaiso/artwiki/internal/telemetry"
	"github.com/shaiso/artwiki/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting artwiki-worker")

	cfg := config.Load()
	if cfg.MQ.URL == "" {
		cfg.MQ.URL = mq.DefaultURL()
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	services, err := app.New(ctx, cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	if services.MQ == nil {
		logger.Error("RabbitMQ is required for the worker")
		os.Exit(1)
	}

	// Создаём worker
	w, err := worker.New(worker.Config{
		Runner:    services.Runner,
		Publisher: services.Publisher,
		Conn:      services.MQ,
		Prefetch:  cfg.MQ.Prefetch,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create worker", "error", err)
		os.Exit(1)
	}
	w.Start(ctx)

	// Reaper
	var wg sync.WaitGroup
	reap, err := services.NewReaper()
	if err != nil {
		logger.Error("failed to create reaper", "error", err)
		os.Exit(1)
	}
	if reap != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reap.Run(ctx)
		}()
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if w.IsStopped() || !services.MQ.IsConnected() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			rw.Write([]byte("unavailable"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Server.WorkerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Останавливаем worker: текущий workflow дорабатывает до конца
	w.Stop()
	wg.Wait()
	logger.Info("artwiki-worker stopped")
}
