package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/agent"
	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
	"github.com/shaiso/artwiki/internal/telemetry"
)

// Default configuration values.
const (
	defaultStoreTimeout = 10 * time.Second
	finalWriteAttempts  = 2
)

// ExecutorSource — поиск executor'а по типу задачи (agent.Registry).
type ExecutorSource interface {
	Get(taskType string) (agent.Executor, error)
}

// Observer получает каждый завершённый и сохранённый job.
//
// Реализации: telemetry.JobMetrics, analytics.RedisSink, mq.Publisher.
// Ошибки наблюдателей логируются и не влияют на результат задачи.
type Observer interface {
	JobFinished(ctx context.Context, job *domain.Job) error
}

// Orchestrator выполняет одну задачу и ведёт её job.
//
// Не хранит состояния между вызовами, поэтому RunTask можно
// вызывать параллельно.
type Orchestrator struct {
	registry  ExecutorSource
	store     repo.JobStore
	observers []Observer

	taskTimeout  time.Duration
	storeTimeout time.Duration

	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Registry — источник executor'ов.
	Registry ExecutorSource

	// Store — хранилище jobs.
	Store repo.JobStore

	// Observers — получатели завершённых jobs.
	Observers []Observer

	// TaskTimeout ограничивает Execute (0 = без ограничения).
	TaskTimeout time.Duration

	// StoreTimeout ограничивает каждую запись в хранилище (default: 10s).
	StoreTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, ErrNoRegistry
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}

	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		registry:     cfg.Registry,
		store:        cfg.Store,
		observers:    cfg.Observers,
		taskTimeout:  max(cfg.TaskTimeout, 0),
		storeTimeout: storeTimeout,
		logger:       logger,
	}, nil
}

// RunTask выполняет задачу taskType с входными данными input.
//
// Порядок:
//  1. Поиск executor'а. Неизвестный тип — ошибка без записи job.
//  2. Создание job в статусе RUNNING.
//  3. Проверка input и вызов Execute.
//  4. Сохранение финального статуса (даже если ctx уже отменён).
//  5. Уведомление наблюдателей и вызов хуков.
//
// Никогда не возвращает панику или ошибку executor'а вызывающему:
// результат всегда выражен в TaskOutcome.
func (o *Orchestrator) RunTask(ctx context.Context, taskType string, input map[string]any) domain.TaskOutcome {
	logger := telemetry.WithTaskType(telemetry.FromContext(ctx, o.logger), taskType)

	executor, err := o.registry.Get(taskType)
	if err != nil {
		logger.WarnContext(ctx, "task rejected", "error", err)
		return failure(taskType, nil, err)
	}

	// Executor получает собственную копию: сохранённый input не может
	// быть изменён executor'ом.
	job := domain.NewJob(taskType, domain.CloneMap(input))
	if err := job.MarkRunning(); err != nil {
		return failure(taskType, nil, err)
	}
	logger = telemetry.WithJobID(logger, job.ID.String())

	if err := o.create(ctx, job); err != nil {
		logger.ErrorContext(ctx, "failed to create job", "error", err)
		return domain.TaskOutcome{
			Status:    domain.OutcomeError,
			TaskType:  taskType,
			Error:     fmt.Sprintf("create job: %v", err),
			ErrorKind: domain.ErrorKindStore,
		}
	}

	logger.InfoContext(ctx, "job started")

	output, execErr := o.execute(ctx, executor, domain.CloneMap(input))
	if execErr == nil {
		// Output сохраняется как JSON: несериализуемый результат — ошибка задачи.
		if _, err := json.Marshal(output); err != nil {
			execErr = fmt.Errorf("output is not serializable: %w", err)
		}
	}
	if execErr != nil {
		_ = job.MarkFailed(execErr.Error())
	} else {
		_ = job.MarkSucceeded(output)
	}

	// Финальная запись не зависит от отмены ctx вызывающего.
	finalCtx := context.WithoutCancel(ctx)
	if err := o.finalize(finalCtx, job); err != nil {
		if errors.Is(err, repo.ErrNotRunning) {
			return o.superseded(finalCtx, logger, executor, job)
		}
		logger.ErrorContext(ctx, "failed to persist job result, job left running",
			"status", job.Status,
			"error", err,
		)
	}

	logger.InfoContext(ctx, "job finished",
		"status", job.Status,
		"duration_ms", job.Duration().Milliseconds(),
	)

	o.notify(finalCtx, logger, job)
	o.runHooks(finalCtx, logger, executor, job, execErr)

	if execErr != nil {
		return failure(taskType, &job.ID, execErr)
	}
	return domain.TaskOutcome{
		Status:   domain.OutcomeSuccess,
		TaskType: taskType,
		JobID:    &job.ID,
		Output:   job.Output,
	}
}

// execute проверяет input и вызывает executor, перехватывая панику.
func (o *Orchestrator) execute(ctx context.Context, executor agent.Executor, input map[string]any) (output map[string]any, err error) {
	if v, ok := executor.(agent.InputValidator); ok {
		if err := v.ValidateInput(input); err != nil {
			if !errors.Is(err, agent.ErrInvalidInput) {
				err = fmt.Errorf("%w: %v", agent.ErrInvalidInput, err)
			}
			return nil, err
		}
	}

	if o.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.taskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = &panicError{value: r}
		}
	}()

	return executor.Execute(ctx, input)
}

// create сохраняет новый job с таймаутом записи.
func (o *Orchestrator) create(ctx context.Context, job *domain.Job) error {
	ctx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()
	return o.store.Create(ctx, job)
}

// finalize сохраняет финальный статус job, повторяя запись один раз.
func (o *Orchestrator) finalize(ctx context.Context, job *domain.Job) error {
	var err error
	for attempt := 1; attempt <= finalWriteAttempts; attempt++ {
		err = o.update(ctx, job)
		if err == nil || errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrNotRunning) {
			return err
		}
	}
	return err
}

func (o *Orchestrator) update(ctx context.Context, job *domain.Job) error {
	ctx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()
	return o.store.Update(ctx, job)
}

// superseded обрабатывает job, закрытый другим процессом (reaper) до
// финальной записи. Сохранённая запись остаётся как есть, результат
// executor'а отбрасывается. Наблюдатели уже получили этот job.
func (o *Orchestrator) superseded(ctx context.Context, logger *slog.Logger, executor agent.Executor, job *domain.Job) domain.TaskOutcome {
	logger.WarnContext(ctx, "job already finalized, result discarded", "status", job.Status)

	reason := "job finalized before completion was recorded"
	getCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	stored, err := o.store.GetByID(getCtx, job.ID)
	cancel()
	if err != nil {
		logger.ErrorContext(ctx, "failed to read finalized job", "error", err)
	} else if stored.Error != "" {
		reason = stored.Error
	}

	finalErr := fmt.Errorf("%w: %s", repo.ErrNotRunning, reason)
	o.runHooks(ctx, logger, executor, job, finalErr)

	return domain.TaskOutcome{
		Status:    domain.OutcomeError,
		TaskType:  job.TaskType,
		JobID:     &job.ID,
		Error:     finalErr.Error(),
		ErrorKind: domain.ErrorKindAbandoned,
	}
}

// notify передаёт job наблюдателям. Ошибки и паники только логируются.
func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, job *domain.Job) {
	for _, obs := range o.observers {
		safeCall(logger, "observer", func() error {
			return obs.JobFinished(ctx, job)
		})
	}
}

// runHooks вызывает OnSuccess/OnFailure executor'а, если они реализованы.
func (o *Orchestrator) runHooks(ctx context.Context, logger *slog.Logger, executor agent.Executor, job *domain.Job, execErr error) {
	if execErr != nil {
		if h, ok := executor.(agent.FailureHook); ok {
			safeCall(logger, "on_failure hook", func() error {
				return h.OnFailure(ctx, execErr)
			})
		}
		return
	}
	if h, ok := executor.(agent.SuccessHook); ok {
		output := domain.CloneMap(job.Output)
		safeCall(logger, "on_success hook", func() error {
			return h.OnSuccess(ctx, output)
		})
	}
}

// safeCall вызывает fn, подавляя ошибку и панику.
func safeCall(logger *slog.Logger, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(what+" panicked", "panic", formatPanic(r))
		}
	}()
	if err := fn(); err != nil {
		logger.Warn(what+" failed", "error", err)
	}
}

func failure(taskType string, jobID *uuid.UUID, err error) domain.TaskOutcome {
	return domain.TaskOutcome{
		Status:    domain.OutcomeError,
		TaskType:  taskType,
		JobID:     jobID,
		Error:     err.Error(),
		ErrorKind: agent.ErrorKind(err),
	}
}

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
