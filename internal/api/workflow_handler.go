package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/mq"
	"github.com/shaiso/artwiki/internal/telemetry"
)

// RunWorkflow выполняет workflow синхронно и возвращает WorkflowResult.
// POST /api/v1/workflows
//
// Ошибка шага не меняет HTTP-статус: результат всегда 200 с
// итогом по каждому выполненному шагу.
func (h *Handler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWorkflow(w, r)
	if !ok {
		return
	}

	wfID := uuid.New()
	logger := telemetry.WithWorkflowID(h.logger, wfID.String())
	ctx := telemetry.WithLogger(r.Context(), logger)

	result := h.workflows.RunWorkflow(ctx, req.Steps, req.Context)
	Success(w, result)
}

// SubmitWorkflow ставит workflow в очередь для worker'а.
// POST /api/v1/workflows/async
func (h *Handler) SubmitWorkflow(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		ServiceUnavailable(w, "async execution is not configured")
		return
	}

	req, ok := h.decodeWorkflow(w, r)
	if !ok {
		return
	}

	payload := mq.WorkflowSubmittedPayload{
		WorkflowID: uuid.New(),
		Steps:      req.Steps,
		Context:    req.Context,
	}
	if err := h.publisher.PublishWorkflowSubmitted(r.Context(), payload); err != nil {
		h.logger.Error("failed to publish workflow", "workflow_id", payload.WorkflowID, "error", err)
		ServiceUnavailable(w, "failed to enqueue workflow")
		return
	}

	Accepted(w, SubmitWorkflowResponse{
		WorkflowID: payload.WorkflowID,
		Status:     "submitted",
	})
}

// decodeWorkflow разбирает тело запроса; при ошибке отвечает 400.
func (h *Handler) decodeWorkflow(w http.ResponseWriter, r *http.Request) (RunWorkflowRequest, bool) {
	var req RunWorkflowRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	if err := validateSteps(req.Steps); err != nil {
		BadRequest(w, err.Error())
		return req, false
	}
	return req, true
}

func validateSteps(steps []domain.WorkflowStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("workflow has no steps")
	}
	for i, step := range steps {
		if step.TaskType == "" {
			return fmt.Errorf("step %d: task_type is required", i)
		}
	}
	return nil
}
