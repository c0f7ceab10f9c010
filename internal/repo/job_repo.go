package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/artwiki/internal/domain"
)

// pgSchema — таблица agent_jobs для PostgreSQL.
const pgSchema = `
	CREATE TABLE IF NOT EXISTS agent_jobs (
		id            UUID PRIMARY KEY,
		job_type      VARCHAR(100) NOT NULL,
		status        VARCHAR(50)  NOT NULL,
		target_id     UUID,
		target_type   VARCHAR(50),
		input_data    JSONB,
		output_data   JSONB,
		error_message TEXT,
		started_at    TIMESTAMPTZ,
		completed_at  TIMESTAMPTZ,
		created_at    TIMESTAMPTZ  NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_status ON agent_jobs (status);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_job_type ON agent_jobs (job_type);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_target_id ON agent_jobs (target_id);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_created_at ON agent_jobs (created_at DESC);
`

const jobColumns = `
	id, job_type, status, target_id, target_type, input_data, output_data,
	error_message, started_at, completed_at, created_at
`

// JobRepo — репозиторий jobs в PostgreSQL.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// EnsureSchema создаёт таблицу agent_jobs, если её нет.
func (r *JobRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create создаёт новый job.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	inputJSON, err := marshalJSON(job.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := marshalJSON(job.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	targetID, targetType := targetColumns(job.Target)

	query := `
		INSERT INTO agent_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.TaskType,
		job.Status.String(),
		targetID,
		targetType,
		inputJSON,
		outputJSON,
		nullString(job.Error),
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update обновляет RUNNING job одним условным UPDATE.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	outputJSON, err := marshalJSON(job.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		UPDATE agent_jobs
		SET status = $2, output_data = $3, error_message = $4,
		    started_at = $5, completed_at = $6
		WHERE id = $1 AND status = 'running'
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status.String(),
		outputJSON,
		nullString(job.Error),
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.missingReason(ctx, job.ID)
	}
	return nil
}

// missingReason различает отсутствующий и уже завершённый job.
func (r *JobRepo) missingReason(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agent_jobs WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotRunning
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM agent_jobs WHERE id = $1`

	job, err := scanPgJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List возвращает jobs с фильтрацией, новые первыми, и общее число записей.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, int, error) {
	filter = filter.Normalize()
	where, args := buildJobWhere(filter, pgPlaceholder)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agent_jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM agent_jobs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := collectPgJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListStale возвращает RUNNING jobs, начатые раньше startedBefore.
func (r *JobRepo) ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM agent_jobs
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.JobStatusRunning.String(), startedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()

	return collectPgJobs(rows)
}

// --- Helpers ---

func collectPgJobs(rows pgx.Rows) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanPgJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var status string
	var targetID *uuid.UUID
	var targetType, errorMessage *string
	var inputJSON, outputJSON []byte

	err := row.Scan(
		&job.ID,
		&job.TaskType,
		&status,
		&targetID,
		&targetType,
		&inputJSON,
		&outputJSON,
		&errorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	if targetID != nil {
		job.Target = &domain.Target{ID: *targetID}
		if targetType != nil {
			job.Target.Type = *targetType
		}
	}
	if errorMessage != nil {
		job.Error = *errorMessage
	}
	if job.Input, err = unmarshalJSON(inputJSON); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if job.Output, err = unmarshalJSON(outputJSON); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}

	return &job, nil
}

// marshalJSON возвращает nil для nil map, чтобы в БД был NULL.
func marshalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalJSON(b []byte) (map[string]any, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func targetColumns(t *domain.Target) (*uuid.UUID, *string) {
	if t == nil {
		return nil, nil
	}
	id := t.ID
	return &id, nullString(t.Type)
}
