package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shaiso/artwiki/internal/domain"
)

// sqliteSchema — таблица agent_jobs для SQLite.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS agent_jobs (
		id            TEXT PRIMARY KEY,
		job_type      TEXT NOT NULL,
		status        TEXT NOT NULL,
		target_id     TEXT,
		target_type   TEXT,
		input_data    TEXT,
		output_data   TEXT,
		error_message TEXT,
		started_at    TEXT,
		completed_at  TEXT,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_status ON agent_jobs (status);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_job_type ON agent_jobs (job_type);
	CREATE INDEX IF NOT EXISTS idx_agent_jobs_created_at ON agent_jobs (created_at);
`

// sqliteTimeLayout — фиксированная ширина, чтобы строки сортировались как время.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteJobRepo — репозиторий jobs в SQLite для локального запуска.
type SQLiteJobRepo struct {
	db *sql.DB
}

// OpenSQLiteJobRepo открывает файл БД и создаёт таблицу.
// path ":memory:" — БД в памяти процесса.
func OpenSQLiteJobRepo(ctx context.Context, path string) (*SQLiteJobRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedStore)
	}
	dsn := path
	if path != ":memory:" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Одно соединение: запись в SQLite всё равно сериализуется,
	// а ":memory:" живёт только внутри соединения.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteJobRepo{db: db}, nil
}

// Close закрывает БД.
func (r *SQLiteJobRepo) Close() error {
	return r.db.Close()
}

// Create создаёт новый job.
func (r *SQLiteJobRepo) Create(ctx context.Context, job *domain.Job) error {
	inputJSON, err := marshalJSON(job.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := marshalJSON(job.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	var targetID, targetType any
	if job.Target != nil {
		targetID = job.Target.ID.String()
		targetType = nullText(job.Target.Type)
	}

	query := `
		INSERT INTO agent_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		job.ID.String(),
		job.TaskType,
		job.Status.String(),
		targetID,
		targetType,
		bytesText(inputJSON),
		bytesText(outputJSON),
		nullText(job.Error),
		timeText(job.StartedAt),
		timeText(job.CompletedAt),
		job.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update обновляет RUNNING job одним условным UPDATE.
func (r *SQLiteJobRepo) Update(ctx context.Context, job *domain.Job) error {
	outputJSON, err := marshalJSON(job.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		UPDATE agent_jobs
		SET status = ?, output_data = ?, error_message = ?,
		    started_at = ?, completed_at = ?
		WHERE id = ? AND status = 'running'
	`
	result, err := r.db.ExecContext(ctx, query,
		job.Status.String(),
		bytesText(outputJSON),
		nullText(job.Error),
		timeText(job.StartedAt),
		timeText(job.CompletedAt),
		job.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM agent_jobs WHERE id = ?)`, job.ID.String()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check job: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNotRunning
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *SQLiteJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM agent_jobs WHERE id = ?`

	job, err := scanSQLiteJob(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List возвращает jobs с фильтрацией, новые первыми, и общее число записей.
func (r *SQLiteJobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, int, error) {
	filter = filter.Normalize()
	where, args := buildJobWhere(filter, sqlitePlaceholder)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM agent_jobs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := collectSQLiteJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListStale возвращает RUNNING jobs, начатые раньше startedBefore.
func (r *SQLiteJobRepo) ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM agent_jobs
		WHERE status = ? AND started_at < ?
		ORDER BY started_at ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query,
		domain.JobStatusRunning.String(),
		startedBefore.UTC().Format(sqliteTimeLayout),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()

	return collectSQLiteJobs(rows)
}

// --- Helpers ---

func collectSQLiteJobs(rows *sql.Rows) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var id, status, createdAt string
	var targetID, targetType, inputJSON, outputJSON, errorMessage, startedAt, completedAt sql.NullString

	err := row.Scan(
		&id,
		&job.TaskType,
		&status,
		&targetID,
		&targetType,
		&inputJSON,
		&outputJSON,
		&errorMessage,
		&startedAt,
		&completedAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.Status = domain.JobStatus(status)
	job.Error = errorMessage.String

	if targetID.Valid {
		tid, err := uuid.Parse(targetID.String)
		if err != nil {
			return nil, fmt.Errorf("parse target id: %w", err)
		}
		job.Target = &domain.Target{ID: tid, Type: targetType.String}
	}

	if job.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.StartedAt, err = parseTimeText(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if job.CompletedAt, err = parseTimeText(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	if job.Input, err = unmarshalJSON([]byte(inputJSON.String)); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if job.Output, err = unmarshalJSON([]byte(outputJSON.String)); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}

	return &job, nil
}

func timeText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTimeText(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func bytesText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
