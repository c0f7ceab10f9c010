package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
)

// Store — операции хранилища, нужные Reaper.
type Store interface {
	ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
}

// Observer получает закрытые Reaper'ом jobs.
type Observer interface {
	JobFinished(ctx context.Context, job *domain.Job) error
}

// Config — конфигурация Reaper.
type Config struct {
	Store     Store
	Observers []Observer
	Logger    *slog.Logger

	// Schedule — cron-выражение запуска (default: "*/5 * * * *").
	Schedule string

	// StaleAfter — возраст RUNNING job, после которого он считается брошенным (default: 1h).
	StaleAfter time.Duration

	// BatchSize — количество jobs за один тик (default: 100).
	BatchSize int
}

// Reaper переводит зависшие RUNNING jobs в FAILED.
type Reaper struct {
	store      Store
	observers  []Observer
	logger     *slog.Logger
	schedule   cron.Schedule
	staleAfter time.Duration
	batchSize  int
	clock      func() time.Time
}

// New создаёт Reaper. Возвращает ошибку при невалидном расписании.
func New(cfg Config) (*Reaper, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}

	expr := cfg.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reaper{
		store:      cfg.Store,
		observers:  cfg.Observers,
		logger:     logger.With("component", "reaper"),
		schedule:   schedule,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		clock:      time.Now,
	}, nil
}

// Run запускает цикл по расписанию. Блокируется до отмены ctx.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started", "stale_after", r.staleAfter, "batch_size", r.batchSize)

	for {
		now := r.clock()
		next := r.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("reaper stopped")
			return
		case <-timer.C:
			if _, err := r.Tick(ctx); err != nil {
				r.logger.Error("reaper tick failed", "error", err)
			}
		}
	}
}

// Tick выполняет один проход.
//
// 1. Находит RUNNING jobs, начатые раньше now - StaleAfter
// 2. Перечитывает каждый job и пропускает уже завершённые
// 3. Переводит job в FAILED и уведомляет наблюдателей
//
// Ошибка одного job не блокирует обработку остальных.
// Возвращает число закрытых jobs.
func (r *Reaper) Tick(ctx context.Context) (int, error) {
	now := r.clock().UTC()
	cutoff := now.Add(-r.staleAfter)

	stale, err := r.store.ListStale(ctx, cutoff, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	r.logger.Debug("found stale jobs", "count", len(stale), "cutoff", cutoff)

	var reaped, failed int
	for i := range stale {
		if ctx.Err() != nil {
			r.logger.Info("reaper tick interrupted", "processed", reaped+failed, "found", len(stale))
			return reaped, ctx.Err()
		}

		ok, err := r.reap(ctx, stale[i].ID, now)
		if err != nil {
			r.logger.Error("failed to reap job", "job_id", stale[i].ID, "error", err)
			failed++
			continue
		}
		if ok {
			reaped++
		}
	}

	r.logger.Info("reaper tick completed",
		"found", len(stale),
		"reaped", reaped,
		"failed", failed,
	)
	return reaped, nil
}

// reap закрывает один job. false — job уже не RUNNING.
func (r *Reaper) reap(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	job, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get job: %w", err)
	}
	if job.Status != domain.JobStatusRunning || job.StartedAt == nil {
		return false, nil
	}

	age := now.Sub(*job.StartedAt).Round(time.Second)
	if err := job.MarkFailed(fmt.Sprintf("%s: no completion recorded after %s", AbandonedError, age)); err != nil {
		return false, err
	}
	if err := r.store.Update(ctx, job); err != nil {
		if errors.Is(err, repo.ErrNotRunning) || errors.Is(err, repo.ErrNotFound) {
			r.logger.Info("job finished before reaping", "job_id", job.ID)
			return false, nil
		}
		return false, fmt.Errorf("update job: %w", err)
	}

	r.logger.Warn("reaped abandoned job",
		"job_id", job.ID,
		"task_type", job.TaskType,
		"age", age,
	)

	for _, obs := range r.observers {
		r.notify(ctx, obs, job)
	}
	return true, nil
}

// notify вызывает наблюдателя. Ошибка и паника только логируются.
func (r *Reaper) notify(ctx context.Context, obs Observer, job *domain.Job) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("observer panicked", "job_id", job.ID, "panic", fmt.Sprint(v))
		}
	}()
	if err := obs.JobFinished(ctx, job); err != nil {
		r.logger.Warn("observer failed", "job_id", job.ID, "error", err)
	}
}
