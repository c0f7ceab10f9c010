package repo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

// Пагинация списка jobs.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// JobFilter — фильтр для списка jobs.
type JobFilter struct {
	Status   *domain.JobStatus
	TaskType string
	// TargetID — jobs, относящиеся к одной сущности каталога.
	TargetID *uuid.UUID
	Limit    int
	Offset   int
}

// Normalize приводит limit к 1..100 (по умолчанию 20), offset — к ≥ 0.
func (f JobFilter) Normalize() JobFilter {
	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)
	return f
}

// JobStore — хранилище job records.
//
// Create и Update атомарны на уровне одной записи: читатель видит
// запись либо до, либо после изменения.
type JobStore interface {
	// Create сохраняет новый job. ErrAlreadyExists, если ID занят.
	Create(ctx context.Context, job *domain.Job) error

	// Update записывает финальный статус job, только пока запись RUNNING.
	// ErrNotFound, если записи нет. ErrNotRunning, если job уже завершён:
	// финальная запись не перезаписывается.
	Update(ctx context.Context, job *domain.Job) error

	// GetByID возвращает job. ErrNotFound, если записи нет.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// List возвращает страницу jobs (новые первыми) и общее число подходящих записей.
	List(ctx context.Context, filter JobFilter) ([]domain.Job, int, error)

	// ListStale возвращает RUNNING jobs, начатые раньше startedBefore.
	ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Job, error)
}

// StoreConfig — параметры OpenStores.
type StoreConfig struct {
	// URL — "memory", "sqlite:<path>" или DSN PostgreSQL.
	URL      string
	MaxConns int32
}

// Stores — хранилища одного бэкенда: jobs и каталог.
type Stores struct {
	Jobs    JobStore
	Catalog CatalogStore
}

// OpenStores выбирает бэкенд по URL и создаёт в нём jobs и каталог.
// Возвращаемая функция закрывает соединения.
func OpenStores(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (Stores, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case cfg.URL == "memory":
		logger.Warn("using in-memory stores, records are lost on restart")
		return Stores{Jobs: NewMemoryJobRepo(), Catalog: NewMemoryCatalogRepo()}, func() {}, nil

	case strings.HasPrefix(cfg.URL, "sqlite:"):
		jobs, err := OpenSQLiteJobRepo(ctx, sqlitePath(cfg.URL))
		if err != nil {
			return Stores{}, nil, err
		}
		catalog, err := NewSQLiteCatalogRepo(ctx, jobs.db)
		if err != nil {
			_ = jobs.Close()
			return Stores{}, nil, err
		}
		logger.Info("connected to sqlite store")
		return Stores{Jobs: jobs, Catalog: catalog}, func() { _ = jobs.Close() }, nil

	case cfg.URL == "",
		strings.HasPrefix(cfg.URL, "postgres://"),
		strings.HasPrefix(cfg.URL, "postgresql://"):
		pool, err := NewPool(ctx, PoolConfig{URL: cfg.URL, MaxConns: cfg.MaxConns})
		if err != nil {
			return Stores{}, nil, err
		}
		jobs := NewJobRepo(pool)
		catalog := NewCatalogRepo(pool)
		if err := jobs.EnsureSchema(ctx); err != nil {
			pool.Close()
			return Stores{}, nil, err
		}
		if err := catalog.EnsureSchema(ctx); err != nil {
			pool.Close()
			return Stores{}, nil, err
		}
		logger.Info("connected to database")
		return Stores{Jobs: jobs, Catalog: catalog}, pool.Close, nil

	default:
		return Stores{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedStore, redact(cfg.URL))
	}
}

// sqlitePath: "sqlite:///var/lib/artwiki.db" → "/var/lib/artwiki.db", "sqlite:jobs.db" → "jobs.db".
func sqlitePath(url string) string {
	path := strings.TrimPrefix(url, "sqlite:")
	if strings.HasPrefix(path, "//") {
		path = strings.TrimPrefix(path, "//")
	}
	return path
}

// redact отрезает всё после схемы, чтобы не логировать пароли.
func redact(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[:i+3] + "..."
	}
	if len(url) > 16 {
		return url[:16] + "..."
	}
	return url
}

// buildJobWhere строит WHERE для фильтра.
// placeholder(n) возвращает плейсхолдер n-го аргумента ("$1" или "?").
func buildJobWhere(filter JobFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		args = append(args, filter.Status.String())
		conditions = append(conditions, "status = "+placeholder(len(args)))
	}
	if filter.TaskType != "" {
		args = append(args, filter.TaskType)
		conditions = append(conditions, "job_type = "+placeholder(len(args)))
	}
	if filter.TargetID != nil {
		args = append(args, filter.TargetID.String())
		conditions = append(conditions, "target_id = "+placeholder(len(args)))
	}
	return joinWhere(conditions), args
}

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func sqlitePlaceholder(int) string { return "?" }
