// Package app собирает сервисы artwiki из конфигурации.
//
// Используется cmd/artwiki-api и cmd/artwiki-worker: хранилища jobs
// и каталога, реестр агентов, orchestrator и runner одинаковы в обоих процессах.
// RabbitMQ и Redis опциональны: при недоступности процесс продолжает
// работу без них.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/artwiki/internal/agent"
	"github.com/shaiso/artwiki/internal/analytics"
	"github.com/shaiso/artwiki/internal/config"
	"github.com/shaiso/artwiki/internal/llm/openai"
	"github.com/shaiso/artwiki/internal/mediawiki"
	"github.com/shaiso/artwiki/internal/mq"
	"github.com/shaiso/artwiki/internal/orchestrator"
	"github.com/shaiso/artwiki/internal/reaper"
	"github.com/shaiso/artwiki/internal/repo"
	"github.com/shaiso/artwiki/internal/telemetry"
)

const pingTimeout = 5 * time.Second

// App — собранные сервисы.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store        repo.JobStore
	Catalog      repo.CatalogStore
	Registry     *agent.Registry
	Orchestrator *orchestrator.Orchestrator
	Runner       *orchestrator.Runner
	Metrics      *telemetry.JobMetrics

	// MQ и Publisher равны nil, если RabbitMQ не настроен или недоступен.
	MQ        *mq.Connection
	Publisher *mq.Publisher

	// Analytics равен nil без Redis.
	Analytics *analytics.RedisSink

	closers []func() error
}

// New собирает сервисы. reg — регистратор метрик (nil отключает метрики jobs).
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	stores, closeStore, err := repo.OpenStores(ctx, repo.StoreConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.Store = stores.Jobs
	a.Catalog = stores.Catalog
	a.closers = append(a.closers, func() error { closeStore(); return nil })

	a.Registry = agent.DefaultRegistry(agent.Deps{
		LLM:     newLLM(cfg.LLM, logger),
		Wiki:    newWiki(cfg.MediaWiki, logger),
		Crawler: agent.CrawlerConfig{Timeout: cfg.Crawler.Timeout, UserAgent: cfg.Crawler.UserAgent},
		Logger:  logger,
	})
	logger.Info("agents registered", "task_types", a.Registry.Types())

	a.Metrics = telemetry.NewJobMetrics(reg, logger)
	observers := []orchestrator.Observer{a.Metrics}

	if cfg.Redis.Addr != "" {
		if sink := a.connectRedis(ctx, cfg.Redis); sink != nil {
			a.Analytics = sink
			observers = append(observers, sink)
		}
	}

	if cfg.MQ.URL != "" {
		a.connectMQ(ctx, cfg.MQ.URL)
		if a.Publisher != nil {
			observers = append(observers, a.Publisher)
		}
	}

	a.Orchestrator, err = orchestrator.New(orchestrator.Config{
		Registry:     a.Registry,
		Store:        a.Store,
		Observers:    observers,
		TaskTimeout:  cfg.Orchestrator.TaskTimeout,
		StoreTimeout: cfg.Orchestrator.StoreTimeout,
		Logger:       logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Runner, err = orchestrator.NewRunner(a.Orchestrator, logger, a.Metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

// NewReaper создаёт Reaper над хранилищем App.
// Возвращает nil, если reaper выключен в конфигурации.
func (a *App) NewReaper() (*reaper.Reaper, error) {
	if !a.Config.Reaper.Enabled {
		return nil, nil
	}
	observers := []reaper.Observer{a.Metrics}
	if a.Analytics != nil {
		observers = append(observers, a.Analytics)
	}
	if a.Publisher != nil {
		observers = append(observers, a.Publisher)
	}
	return reaper.New(reaper.Config{
		Store:      a.Store,
		Observers:  observers,
		Schedule:   a.Config.Reaper.Schedule,
		StaleAfter: a.Config.Reaper.StaleAfter,
		BatchSize:  a.Config.Reaper.BatchSize,
		Logger:     a.Logger,
	})
}

// Close закрывает соединения в обратном порядке.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) connectRedis(ctx context.Context, cfg config.RedisConfig) *analytics.RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.Logger.Warn("redis not available, job counters disabled", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}

	a.Logger.Info("redis connected", "addr", cfg.Addr)
	a.closers = append(a.closers, client.Close)
	return analytics.NewRedisSink(client, analytics.Config{Window: cfg.Window, Retention: cfg.Retention})
}

func (a *App) connectMQ(ctx context.Context, url string) {
	conn, err := mq.NewConnection(url, a.Logger)
	if err != nil {
		a.Logger.Warn("RabbitMQ not available, async workflows disabled", "error", err)
		return
	}
	a.Logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, conn); err != nil {
		a.Logger.Warn("failed to setup topology", "error", err)
	}

	a.MQ = conn
	a.Publisher = mq.NewPublisher(conn, a.Logger)
	a.closers = append(a.closers, conn.Close)
}

func newLLM(cfg config.LLMConfig, logger *slog.Logger) *openai.Client {
	if cfg.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, writer tasks will fail")
	}
	return openai.NewClient(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, logger)
}

// newWiki возвращает nil-интерфейс без MEDIAWIKI_API_URL:
// mediawiki executor тогда отвечает ошибкой конфигурации.
func newWiki(cfg config.MediaWikiConfig, logger *slog.Logger) agent.WikiClient {
	if cfg.APIURL == "" {
		logger.Warn("MEDIAWIKI_API_URL is not set, mediawiki tasks will fail")
		return nil
	}
	return mediawiki.NewClient(mediawiki.Config{
		APIURL:   cfg.APIURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	}, logger)
}
