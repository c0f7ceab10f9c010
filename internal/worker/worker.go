package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/mq"
)

// Default configuration values.
const (
	defaultPrefetch       = 1
	defaultPublishTimeout = 10 * time.Second
)

// WorkflowRunner — выполнение workflow (orchestrator.Runner).
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, steps []domain.WorkflowStep, initialContext map[string]any) *domain.WorkflowResult
}

// CompletionPublisher — публикация итога workflow (mq.Publisher).
type CompletionPublisher interface {
	PublishWorkflowCompleted(ctx context.Context, payload mq.WorkflowCompletedPayload) error
}

// Worker выполняет workflow из очереди workflows.submitted.
type Worker struct {
	runner    WorkflowRunner
	publisher CompletionPublisher
	conn      *mq.Connection

	consumer *mq.Consumer
	prefetch int

	publishTimeout time.Duration

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Runner выполняет шаги workflow.
	Runner WorkflowRunner

	// Publisher публикует итог (опционально; без него итог только логируется).
	Publisher CompletionPublisher

	// Conn — соединение с RabbitMQ для consumer'а.
	Conn *mq.Connection

	// Prefetch — сколько workflow получать заранее (default: 1).
	Prefetch int

	// PublishTimeout ограничивает публикацию итога (default: 10s).
	PublishTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Runner == nil {
		return nil, ErrNoRunner
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		runner:         cfg.Runner,
		publisher:      cfg.Publisher,
		conn:           cfg.Conn,
		prefetch:       prefetch,
		publishTimeout: publishTimeout,
		logger:         logger,
	}, nil
}

// Start запускает consumer workflows.submitted в фоне.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "prefetch", w.prefetch)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueWorkflowsSubmitted),
		Handler:  w.handleWorkflowSubmitted,
		Prefetch: w.prefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("workflow consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
}

// Stop останавливает Worker и ждёт завершения текущего workflow.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
