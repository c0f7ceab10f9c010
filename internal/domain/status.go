package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ FAILED
//
// Orchestrator создаёт job сразу в RUNNING; PENDING зарезервирован
// для очереди перед диспетчеризацией executor'а.
type JobStatus string

const (
	// JobStatusPending — job создан, executor ещё не запущен.
	JobStatusPending JobStatus = "pending"

	// JobStatusRunning — executor выполняется.
	JobStatusRunning JobStatus = "running"

	// JobStatusSuccess — executor завершился успешно.
	JobStatusSuccess JobStatus = "success"

	// JobStatusFailed — executor завершился с ошибкой.
	JobStatusFailed JobStatus = "failed"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус входит в допустимый набор.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusSuccess, JobStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// ParseJobStatus парсит строку в JobStatus.
// Второе значение false, если строка не является известным статусом.
func ParseJobStatus(s string) (JobStatus, bool) {
	status := JobStatus(s)
	return status, status.IsValid()
}

// OutcomeStatus — итог одного вызова RunTask.
type OutcomeStatus string

const (
	// OutcomeSuccess — executor вернул результат.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeError — задача не выполнена (неизвестный тип, валидация, ошибка executor'а).
	OutcomeError OutcomeStatus = "error"
)

// WorkflowStatusCompleted — workflow runner завершил работу.
// Описывает завершение самого runner'а, а не успех задач.
const WorkflowStatusCompleted = "completed"
