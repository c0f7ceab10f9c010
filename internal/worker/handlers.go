package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/mq"
	"github.com/shaiso/artwiki/internal/telemetry"
)

// handleWorkflowSubmitted обрабатывает сообщение workflow.submitted.
func (w *Worker) handleWorkflowSubmitted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.WorkflowSubmittedPayload](delivery)
	if err != nil {
		return err
	}
	if err := validatePayload(payload); err != nil {
		return fmt.Errorf("%w: %v", mq.ErrMalformed, err)
	}

	// Пока ни один шаг не запущен, сообщение можно вернуть в очередь.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", mq.ErrRequeue, err)
	}

	w.processWorkflow(ctx, payload)
	return nil
}

// processWorkflow выполняет workflow и публикует итог.
func (w *Worker) processWorkflow(ctx context.Context, payload mq.WorkflowSubmittedPayload) *domain.WorkflowResult {
	logger := telemetry.WithWorkflowID(w.logger, payload.WorkflowID.String())
	ctx = telemetry.WithLogger(ctx, logger)

	logger.InfoContext(ctx, "workflow started", "steps", len(payload.Steps))

	result := w.runner.RunWorkflow(ctx, payload.Steps, payload.Context)

	logger.InfoContext(ctx, "workflow finished",
		"steps_run", len(result.Results),
		"failed", result.Failed(),
	)

	if w.publisher == nil {
		return result
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.publishTimeout)
	defer cancel()

	err := w.publisher.PublishWorkflowCompleted(pubCtx, mq.WorkflowCompletedPayload{
		WorkflowID: payload.WorkflowID,
		Failed:     result.Failed(),
		Result:     result,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish workflow result", "error", err)
	}
	return result
}

func validatePayload(p mq.WorkflowSubmittedPayload) error {
	if p.WorkflowID == uuid.Nil {
		return fmt.Errorf("%w: missing workflow_id", ErrInvalidWorkflow)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidWorkflow)
	}
	for i, step := range p.Steps {
		if step.TaskType == "" {
			return fmt.Errorf("%w: step %d has no task_type", ErrInvalidWorkflow, i)
		}
	}
	return nil
}
