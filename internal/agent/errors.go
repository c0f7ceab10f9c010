package agent

import (
	"context"
	"errors"

	"github.com/shaiso/artwiki/internal/domain"
)

// Ошибки executor'ов.
var (
	// ErrUnknownTaskType — нет executor'а для данного типа задачи.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrInvalidInput — input не прошёл валидацию.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream — внешний сервис вернул ошибку.
	ErrUpstream = errors.New("upstream error")

	// ErrTimeout — внешний вызов превысил таймаут.
	ErrTimeout = errors.New("timeout")
)

// ErrorKind классифицирует ошибку для TaskOutcome.ErrorKind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownTaskType):
		return domain.ErrorKindUnknownTaskType
	case errors.Is(err, ErrInvalidInput):
		return domain.ErrorKindValidation
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorKindTimeout
	case errors.Is(err, context.Canceled):
		return domain.ErrorKindCancelled
	default:
		return domain.ErrorKindRuntime
	}
}
