package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

// Workflow DTOs

// RunWorkflowRequest — запрос на запуск workflow.
//
// Шаги принимаются в поле steps или workflow.
type RunWorkflowRequest struct {
	Steps   []domain.WorkflowStep `json:"steps"`
	Context map[string]any        `json:"context,omitempty"`
}

// UnmarshalJSON принимает также поле workflow как синоним steps.
func (r *RunWorkflowRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Steps    []domain.WorkflowStep `json:"steps"`
		Workflow []domain.WorkflowStep `json:"workflow"`
		Context  map[string]any        `json:"context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Steps = raw.Steps
	if len(r.Steps) == 0 {
		r.Steps = raw.Workflow
	}
	r.Context = raw.Context
	return nil
}

// SubmitWorkflowResponse — ответ на асинхронный запуск.
type SubmitWorkflowResponse struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Status     string    `json:"status"`
}

// Task DTOs

// RunTaskRequest — запрос на запуск одной задачи.
type RunTaskRequest struct {
	TaskType string         `json:"task_type"`
	Input    map[string]any `json:"input,omitempty"`
}

// AgentsResponse — зарегистрированные типы задач.
type AgentsResponse struct {
	TaskTypes []string `json:"task_types"`
}

// Job DTOs

// JobResponse — ответ с job.
type JobResponse struct {
	ID          uuid.UUID      `json:"id"`
	TaskType    string         `json:"task_type"`
	Status      string         `json:"status"`
	TargetID    *uuid.UUID     `json:"target_id,omitempty"`
	TargetType  string         `json:"target_type,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMs  *int64         `json:"duration_ms,omitempty"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j domain.Job) JobResponse {
	resp := JobResponse{
		ID:          j.ID,
		TaskType:    j.TaskType,
		Status:      j.Status.String(),
		Input:       j.Input,
		Output:      j.Output,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
	if j.Target != nil {
		id := j.Target.ID
		resp.TargetID = &id
		resp.TargetType = j.Target.Type
	}
	if j.IsFinished() {
		ms := j.Duration().Milliseconds()
		resp.DurationMs = &ms
	}
	return resp
}

// Catalog DTOs

// CreateWorkRequest — запрос на создание произведения.
type CreateWorkRequest struct {
	ArtistID uuid.UUID `json:"artist_id"`
	domain.WorkPatch
}

// CreateRelationshipRequest — запрос на создание связи между артистами.
type CreateRelationshipRequest struct {
	SourceArtistID uuid.UUID `json:"source_artist_id"`
	TargetArtistID uuid.UUID `json:"target_artist_id"`
	Type           string    `json:"relationship_type"`
	Description    string    `json:"description"`
}

// Stats DTOs

// JobStatsResponse — счётчики jobs по статусам за одно окно.
type JobStatsResponse struct {
	TaskType string           `json:"task_type"`
	At       time.Time        `json:"at"`
	Counts   map[string]int64 `json:"counts"`
}
