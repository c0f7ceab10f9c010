// Package analytics ведёт счётчики завершённых jobs в Redis
// по временным окнам.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/artwiki/internal/domain"
)

// Значения по умолчанию.
const (
	DefaultWindow    = 5 * time.Minute
	DefaultRetention = 7 * 24 * time.Hour
)

// Config — окно агрегации и время хранения счётчиков.
type Config struct {
	Window    time.Duration
	Retention time.Duration
}

// RedisSink — наблюдатель orchestrator'а, считающий jobs по
// task_type, статусу и окну времени завершения.
type RedisSink struct {
	client *redis.Client
	cfg    Config
}

func NewRedisSink(client *redis.Client, cfg Config) *RedisSink {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &RedisSink{client: client, cfg: cfg}
}

func (s *RedisSink) JobFinished(ctx context.Context, job *domain.Job) error {
	at := job.CreatedAt
	if job.CompletedAt != nil {
		at = *job.CompletedAt
	}
	key := buildKey(job.TaskType, job.Status.String(), at, s.cfg.Window)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.cfg.Retention)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}

	return nil
}

// Count возвращает значение счётчика для окна, содержащего t.
func (s *RedisSink) Count(ctx context.Context, taskType string, status domain.JobStatus, t time.Time) (int64, error) {
	n, err := s.client.Get(ctx, buildKey(taskType, status.String(), t, s.cfg.Window)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

func buildKey(taskType, status string, t time.Time, window time.Duration) string {
	bucket := truncateToBucket(t, window)
	return fmt.Sprintf("t:%s:%s:%s", taskType, status, bucket)
}

func truncateToBucket(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch window {
	case time.Minute:
		return t.Format("200601021504")
	case 5 * time.Minute:
		minute := (t.Minute() / 5) * 5
		return t.Format("2006010215") + fmt.Sprintf("%02d", minute)
	case time.Hour:
		return t.Format("2006010215")
	case 24 * time.Hour:
		return t.Format("20060102")
	default:
		return t.Format("200601021504")
	}
}
