package orchestrator

import (
	"context"
	"log/slog"
	"maps"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/telemetry"
)

// TaskRunner — выполнение одной задачи (Orchestrator).
type TaskRunner interface {
	RunTask(ctx context.Context, taskType string, input map[string]any) domain.TaskOutcome
}

// WorkflowObserver получает итог каждого workflow (telemetry.JobMetrics).
type WorkflowObserver interface {
	WorkflowFinished(result *domain.WorkflowResult)
}

// Runner выполняет шаги workflow последовательно.
//
// Контекст workflow — общая map, в которую сливается output каждого
// успешного шага. Input шага = статический input шага + контекст,
// при совпадении ключей побеждает контекст.
type Runner struct {
	tasks     TaskRunner
	observers []WorkflowObserver
	logger    *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(tasks TaskRunner, logger *slog.Logger, observers ...WorkflowObserver) (*Runner, error) {
	if tasks == nil {
		return nil, ErrNoTaskRunner
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{tasks: tasks, observers: observers, logger: logger}, nil
}

// RunWorkflow выполняет steps по порядку, начиная с initialContext.
//
// Останавливается на первом шаге со статусом error; уже выполненные
// шаги не откатываются. Если ctx отменён между шагами, новый шаг не
// запускается, а в Results добавляется ошибка cancelled без job.
//
// Status результата всегда "completed"; ошибку показывает последний
// элемент Results.
func (r *Runner) RunWorkflow(ctx context.Context, steps []domain.WorkflowStep, initialContext map[string]any) *domain.WorkflowResult {
	logger := telemetry.FromContext(ctx, r.logger)

	wfCtx := domain.CloneMap(initialContext)
	if wfCtx == nil {
		wfCtx = make(map[string]any)
	}

	result := &domain.WorkflowResult{
		Status:  domain.WorkflowStatusCompleted,
		Results: make([]domain.TaskOutcome, 0, len(steps)),
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "workflow interrupted", "step", i, "error", err)
			result.Results = append(result.Results, domain.TaskOutcome{
				Status:    domain.OutcomeError,
				TaskType:  step.TaskType,
				Error:     "workflow cancelled: " + err.Error(),
				ErrorKind: domain.ErrorKindCancelled,
			})
			break
		}

		input := stepInput(step.Input, wfCtx)
		outcome := r.tasks.RunTask(ctx, step.TaskType, input)
		result.Results = append(result.Results, outcome)

		if !outcome.OK() {
			logger.InfoContext(ctx, "workflow stopped on failed step",
				"step", i,
				"task_type", step.TaskType,
				"error", outcome.Error,
			)
			break
		}
		maps.Copy(wfCtx, domain.CloneMap(outcome.Output))
	}

	result.Context = wfCtx

	for _, obs := range r.observers {
		safeCall(logger, "workflow observer", func() error {
			obs.WorkflowFinished(result)
			return nil
		})
	}
	return result
}

// stepInput строит input шага: копия статического input с наложенным
// поверх контекстом.
func stepInput(static, wfCtx map[string]any) map[string]any {
	input := domain.CloneMap(static)
	if input == nil {
		input = make(map[string]any, len(wfCtx))
	}
	maps.Copy(input, domain.CloneMap(wfCtx))
	return input
}
