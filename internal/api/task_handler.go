package api

import (
	"net/http"
)

// RunTask выполняет одну задачу и возвращает TaskOutcome.
// POST /api/v1/tasks
func (h *Handler) RunTask(w http.ResponseWriter, r *http.Request) {
	var req RunTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TaskType == "" {
		BadRequest(w, "task_type is required")
		return
	}

	Success(w, h.tasks.RunTask(r.Context(), req.TaskType, req.Input))
}

// ListAgents возвращает зарегистрированные типы задач.
// GET /api/v1/agents
func (h *Handler) ListAgents(w http.ResponseWriter, _ *http.Request) {
	Success(w, AgentsResponse{TaskTypes: h.agents.Types()})
}
