package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/mq"
	"github.com/shaiso/artwiki/internal/repo"
)

// TaskRunner — запуск одной задачи (orchestrator.Orchestrator).
type TaskRunner interface {
	RunTask(ctx context.Context, taskType string, input map[string]any) domain.TaskOutcome
}

// WorkflowRunner — синхронный запуск workflow (orchestrator.Runner).
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, steps []domain.WorkflowStep, initialContext map[string]any) *domain.WorkflowResult
}

// WorkflowPublisher — постановка workflow в очередь (mq.Publisher).
type WorkflowPublisher interface {
	PublishWorkflowSubmitted(ctx context.Context, payload mq.WorkflowSubmittedPayload) error
}

// JobReader — чтение записей jobs.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, int, error)
}

// JobCounter — счётчики завершённых jobs по окнам (analytics.RedisSink).
type JobCounter interface {
	Count(ctx context.Context, taskType string, status domain.JobStatus, t time.Time) (int64, error)
}

// TaskTypeLister — список зарегистрированных типов задач (agent.Registry).
type TaskTypeLister interface {
	Types() []string
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	tasks     TaskRunner
	workflows WorkflowRunner
	jobs      JobReader
	agents    TaskTypeLister
	publisher WorkflowPublisher
	catalog   repo.CatalogStore
	stats     JobCounter
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Tasks     TaskRunner
	Workflows WorkflowRunner
	Jobs      JobReader
	Agents    TaskTypeLister

	// Publisher — опционально; без него асинхронный запуск отвечает 503.
	Publisher WorkflowPublisher

	// Catalog — опционально; без него маршруты каталога не регистрируются.
	Catalog repo.CatalogStore

	// Stats — опционально; без него /api/v1/stats/jobs отвечает 503.
	Stats JobCounter

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tasks:     cfg.Tasks,
		workflows: cfg.Workflows,
		jobs:      cfg.Jobs,
		agents:    cfg.Agents,
		publisher: cfg.Publisher,
		catalog:   cfg.Catalog,
		stats:     cfg.Stats,
		logger:    logger,
	}
}
