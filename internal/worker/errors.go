package worker

import "errors"

// Ошибки worker'а.
var (
	// ErrInvalidWorkflow — workflow.submitted без id или шагов.
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrNoRunner — Worker создан без Runner.
	ErrNoRunner = errors.New("worker: runner is required")
)
