package agent

import (
	"context"
	"log/slog"
)

// Executor — интерфейс для выполнения одного типа задачи.
//
// Реализации: CrawlerExecutor, WriterExecutor, MediaWikiExecutor,
// TransformExecutor, DelayExecutor.
//
// input принадлежит executor'у: Orchestrator передаёт копию.
// ctx может содержать таймаут задачи; внешние вызовы ограничены
// собственным таймаутом executor'а.
type Executor interface {
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// InputValidator — опциональная проверка input до Execute.
type InputValidator interface {
	ValidateInput(input map[string]any) error
}

// SuccessHook вызывается после успешного выполнения и сохранения job.
type SuccessHook interface {
	OnSuccess(ctx context.Context, output map[string]any) error
}

// FailureHook вызывается после неуспешного выполнения и сохранения job.
type FailureHook interface {
	OnFailure(ctx context.Context, err error) error
}

// baseAgent реализует хуки, которые только пишут в лог.
// Встраивается в конкретные executor'ы.
type baseAgent struct {
	name   string
	logger *slog.Logger
}

func newBaseAgent(name string, logger *slog.Logger) baseAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return baseAgent{name: name, logger: logger.With("agent", name)}
}

// OnSuccess пишет в лог успешное завершение.
func (a baseAgent) OnSuccess(ctx context.Context, output map[string]any) error {
	a.logger.InfoContext(ctx, "agent completed successfully", "output_keys", len(output))
	return nil
}

// OnFailure пишет в лог ошибку.
func (a baseAgent) OnFailure(ctx context.Context, err error) error {
	a.logger.ErrorContext(ctx, "agent failed", "error", err)
	return nil
}
