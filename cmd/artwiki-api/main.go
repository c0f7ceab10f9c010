// Artwiki API — HTTP API для запуска агентов и просмотра jobs.
//
// API:
//   - Выполняет workflow синхронно (POST /api/v1/workflows)
//   - Ставит workflow в очередь RabbitMQ (POST /api/v1/workflows/async)
//   - Выполняет одну задачу (POST /api/v1/tasks)
//   - Отдаёт записи jobs (GET /api/v1/jobs) и счётчики (GET /api/v1/stats/jobs)
//   - Ведёт каталог артистов, произведений и связей (/api/v1/artists, /works, /relationships)
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/artwiki/internal/api"
	"github.com/shaiso/artwiki/internal/app"
	"github.com/shaiso/artwiki/internal/config"
	"github.com/shaiso/artwiki/internal/telemetry"
)

var (
	startTime    = time.Now()
	healthChecks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artwiki_api_health_checks_total",
		Help: "Total /healthz requests handled by artwiki-api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting artwiki-api")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	services, err := app.New(ctx, cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	handlerCfg := api.Config{
		Tasks:     services.Orchestrator,
		Workflows: services.Runner,
		Jobs:      services.Store,
		Agents:    services.Registry,
		Catalog:   services.Catalog,
		Logger:    logger,
	}
	// Publisher и Stats — интерфейсы: nil указатель дал бы не-nil значение.
	if services.Publisher != nil {
		handlerCfg.Publisher = services.Publisher
	}
	if services.Analytics != nil {
		handlerCfg.Stats = services.Analytics
	}
	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		healthChecks.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.Server.APIPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown: ждём синхронные workflow в пределах таймаута
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
