package reaper

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Значения по умолчанию.
const (
	DefaultSchedule   = "*/5 * * * *"
	DefaultStaleAfter = time.Hour
	DefaultBatchSize  = 100
)

// AbandonedError — префикс ошибки в закрытых Reaper'ом jobs.
const AbandonedError = "abandoned"

// ErrNoStore — не передано хранилище.
var ErrNoStore = errors.New("reaper: store is required")

// cronParser — парсер cron-выражений (5 полей и дескрипторы @hourly, @every 10m).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule проверяет и разбирает cron-выражение.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}
