package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

// MemoryJobRepo — JobStore в памяти процесса.
//
// Хранит глубокие копии: изменения переданного или полученного
// *domain.Job не затрагивают сохранённую запись.
type MemoryJobRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.Job
}

// NewMemoryJobRepo создаёт пустое хранилище.
func NewMemoryJobRepo() *MemoryJobRepo {
	return &MemoryJobRepo{jobs: make(map[uuid.UUID]domain.Job)}
}

// Create сохраняет новый job.
func (r *MemoryJobRepo) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return ErrAlreadyExists
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// Update записывает изменяемые поля RUNNING job.
func (r *MemoryJobRepo) Update(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.jobs[job.ID]
	if !exists {
		return ErrNotFound
	}
	if stored.Status != domain.JobStatusRunning {
		return ErrNotRunning
	}

	updated := cloneJob(job)
	stored.Status = updated.Status
	stored.Output = updated.Output
	stored.Error = updated.Error
	stored.StartedAt = updated.StartedAt
	stored.CompletedAt = updated.CompletedAt
	r.jobs[job.ID] = stored
	return nil
}

// GetByID возвращает копию job.
func (r *MemoryJobRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.jobs[id]
	if !exists {
		return nil, ErrNotFound
	}
	job := cloneJob(&stored)
	return &job, nil
}

// List возвращает jobs с фильтрацией, новые первыми, и общее число записей.
func (r *MemoryJobRepo) List(_ context.Context, filter JobFilter) ([]domain.Job, int, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	matched := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		if filter.TaskType != "" && job.TaskType != filter.TaskType {
			continue
		}
		if filter.TargetID != nil && (job.Target == nil || job.Target.ID != *filter.TargetID) {
			continue
		}
		matched = append(matched, cloneJob(&job))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	total := len(matched)
	if filter.Offset >= total {
		return []domain.Job{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	return matched[filter.Offset:end], total, nil
}

// ListStale возвращает RUNNING jobs, начатые раньше startedBefore.
func (r *MemoryJobRepo) ListStale(_ context.Context, startedBefore time.Time, limit int) ([]domain.Job, error) {
	r.mu.RLock()
	var stale []domain.Job
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusRunning && job.StartedAt != nil && job.StartedAt.Before(startedBefore) {
			stale = append(stale, cloneJob(&job))
		}
	}
	r.mu.RUnlock()

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].StartedAt.Before(*stale[j].StartedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// Len возвращает количество записей.
func (r *MemoryJobRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// cloneJob делает глубокую копию job.
func cloneJob(j *domain.Job) domain.Job {
	c := *j
	c.Input = domain.CloneMap(j.Input)
	c.Output = domain.CloneMap(j.Output)
	if j.Target != nil {
		t := *j.Target
		c.Target = &t
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
