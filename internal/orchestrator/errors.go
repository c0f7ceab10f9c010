package orchestrator

import "errors"

// Ошибки конфигурации оркестратора.
var (
	// ErrNoRegistry — не задан реестр executor'ов.
	ErrNoRegistry = errors.New("orchestrator: registry is required")

	// ErrNoStore — не задано хранилище jobs.
	ErrNoStore = errors.New("orchestrator: job store is required")

	// ErrNoTaskRunner — Runner создан без исполнителя задач.
	ErrNoTaskRunner = errors.New("orchestrator: task runner is required")
)

// panicError — паника executor'а, преобразованная в ошибку.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return "executor panic: " + formatPanic(e.value)
}
