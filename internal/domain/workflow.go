package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// WorkflowStep — один шаг workflow: тип задачи и её статический input.
type WorkflowStep struct {
	// TaskType — ключ executor'а в Registry.
	TaskType string `json:"task_type"`

	// Input — статические входные данные шага.
	// Контекст workflow накладывается поверх и имеет приоритет.
	Input map[string]any `json:"task_data,omitempty"`
}

// UnmarshalJSON принимает также старое имя поля agent_type.
func (s *WorkflowStep) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskType  string         `json:"task_type"`
		AgentType string         `json:"agent_type"`
		Input     map[string]any `json:"task_data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.TaskType = raw.TaskType
	if s.TaskType == "" {
		s.TaskType = raw.AgentType
	}
	s.Input = raw.Input
	return nil
}

// Виды ошибок в TaskOutcome.ErrorKind.
const (
	ErrorKindUnknownTaskType = "unknown_task_type"
	ErrorKindValidation      = "validation"
	ErrorKindRuntime         = "runtime"
	ErrorKindTimeout         = "timeout"
	ErrorKindStore           = "store"
	ErrorKindCancelled       = "cancelled"
	ErrorKindAbandoned       = "abandoned"
)

// TaskOutcome — структурированный результат RunTask.
//
// При Status=success заполнен Output, при Status=error — Error.
// JobID отсутствует, если job не создавался (неизвестный тип задачи).
type TaskOutcome struct {
	Status    OutcomeStatus  `json:"status"`
	TaskType  string         `json:"task_type,omitempty"`
	JobID     *uuid.UUID     `json:"job_id,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

// OK возвращает true, если задача выполнена успешно.
func (o TaskOutcome) OK() bool {
	return o.Status == OutcomeSuccess
}

// WorkflowResult — итог RunWorkflow.
//
// Status всегда "completed". Остановку на ошибке нужно определять
// по последнему элементу Results (см. Failed).
type WorkflowResult struct {
	Status  string         `json:"status"`
	Results []TaskOutcome  `json:"results"`
	Context map[string]any `json:"context"`
}

// Last возвращает последний результат шага.
func (r *WorkflowResult) Last() (TaskOutcome, bool) {
	if len(r.Results) == 0 {
		return TaskOutcome{}, false
	}
	return r.Results[len(r.Results)-1], true
}

// Failed возвращает true, если workflow остановлен на ошибке.
func (r *WorkflowResult) Failed() bool {
	last, ok := r.Last()
	return ok && !last.OK()
}
