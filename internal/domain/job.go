package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition — недопустимый переход статуса job.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Ключи входных данных, из которых берётся ссылка на доменную сущность.
const (
	InputTargetID   = "target_id"
	InputTargetType = "target_type"
)

// Target — ссылка на доменную сущность (artist, work, relationship),
// к которой относится job. Структура сущности job'у не важна.
type Target struct {
	ID   uuid.UUID `json:"target_id"`
	Type string    `json:"target_type"`
}

// Job — запись об одном вызове одного executor'а.
//
// Job создаётся Orchestrator'ом в момент начала выполнения
// и изменяется ровно один раз — при завершении (SUCCESS или FAILED).
// После этого запись не меняется.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// TaskType — тип задачи, ключ в Registry ("crawler", "writer", "mediawiki").
	TaskType string `json:"task_type"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// Target — опциональная ссылка на сущность (target_id + target_type из input).
	Target *Target `json:"target,omitempty"`

	// Input — входные данные задачи (после слияния с контекстом workflow).
	Input map[string]any `json:"input,omitempty"`

	// Output — результат executor'а. Заполнен только при SUCCESS.
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки. Заполнен только при FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время завершения; задан тогда и только тогда, когда статус финальный.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob создаёт job в статусе PENDING.
// Target извлекается из input, если там есть корректный target_id.
func NewJob(taskType string, input map[string]any) *Job {
	return &Job{
		ID:        uuid.New(),
		TaskType:  taskType,
		Status:    JobStatusPending,
		Target:    TargetFromInput(input),
		Input:     input,
		CreatedAt: now(),
	}
}

// TargetFromInput извлекает ссылку на сущность из входных данных.
// Возвращает nil, если target_id отсутствует или не является UUID.
func TargetFromInput(input map[string]any) *Target {
	raw, ok := input[InputTargetID].(string)
	if !ok || raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	target := &Target{ID: id}
	if typ, ok := input[InputTargetType].(string); ok {
		target.Type = typ
	}
	return target
}

// MarkRunning переводит job в статус RUNNING.
func (j *Job) MarkRunning() error {
	if j.Status != JobStatusPending {
		return ErrInvalidTransition
	}
	t := now()
	j.Status = JobStatusRunning
	j.StartedAt = &t
	return nil
}

// MarkSucceeded переводит job в статус SUCCESS с результатом.
func (j *Job) MarkSucceeded(output map[string]any) error {
	if j.Status != JobStatusRunning {
		return ErrInvalidTransition
	}
	if output == nil {
		output = make(map[string]any)
	}
	j.Status = JobStatusSuccess
	j.Output = output
	j.Error = ""
	j.CompletedAt = j.completionTime()
	return nil
}

// MarkFailed переводит job в статус FAILED с ошибкой.
func (j *Job) MarkFailed(errMsg string) error {
	if j.Status != JobStatusRunning {
		return ErrInvalidTransition
	}
	if errMsg == "" {
		errMsg = "unknown error"
	}
	j.Status = JobStatusFailed
	j.Output = nil
	j.Error = errMsg
	j.CompletedAt = j.completionTime()
	return nil
}

// Duration возвращает продолжительность выполнения.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// IsFinished возвращает true, если job завершён.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// completionTime не допускает CompletedAt раньше StartedAt
// (wall clock может сдвинуться между вызовами).
func (j *Job) completionTime() *time.Time {
	t := now()
	if j.StartedAt != nil && t.Before(*j.StartedAt) {
		t = *j.StartedAt
	}
	return &t
}

func now() time.Time {
	return time.Now().UTC()
}
