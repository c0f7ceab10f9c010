package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultDelay = time.Second
	maxDelay     = 300 * time.Second
)

var delaySchema = MustCompileSchema(TaskTypeDelay, `{
	"type": "object",
	"properties": {
		"duration_sec": {"type": "number", "minimum": 0, "maximum": 300},
		"duration_ms": {"type": "number", "minimum": 0, "maximum": 300000}
	}
}`)

// DelayExecutor — пауза между шагами (например, ограничение частоты правок вики).
//
// Input:
//
//	{
//	    "duration_sec": 10,    // задержка в секундах
//	    // или
//	    "duration_ms": 5000    // задержка в миллисекундах
//	}
//
// Без параметров ждёт 1 секунду; максимум — 300 секунд.
// Поддерживает graceful shutdown через context cancellation.
type DelayExecutor struct {
	baseAgent
}

// NewDelayExecutor создаёт DelayExecutor.
func NewDelayExecutor(logger *slog.Logger) *DelayExecutor {
	return &DelayExecutor{baseAgent: newBaseAgent(TaskTypeDelay, logger)}
}

// ValidateInput проверяет диапазон длительности.
func (e *DelayExecutor) ValidateInput(input map[string]any) error {
	return delaySchema.Validate(input)
}

// Execute выполняет задержку.
func (e *DelayExecutor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	duration := parseDelay(input)

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delay: %w", ctx.Err())
	case <-timer.C:
		return map[string]any{
			"duration_ms": duration.Milliseconds(),
		}, nil
	}
}

// parseDelay извлекает длительность: duration_sec, затем duration_ms.
func parseDelay(input map[string]any) time.Duration {
	d := defaultDelay
	if sec, ok := getInt(input, "duration_sec"); ok && sec > 0 {
		d = time.Duration(min(sec, int(maxDelay/time.Second))) * time.Second
	} else if ms, ok := getInt(input, "duration_ms"); ok && ms > 0 {
		d = time.Duration(min(ms, int(maxDelay/time.Millisecond))) * time.Millisecond
	}
	return min(d, maxDelay)
}
