// Package config загружает конфигурацию сервисов artwiki из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/artwiki/internal/reaper"
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

// Config — конфигурация всех сервисов.
type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	MQ           MQConfig
	Redis        RedisConfig
	LLM          LLMConfig
	MediaWiki    MediaWikiConfig
	Crawler      CrawlerConfig
	Orchestrator OrchestratorConfig
	Reaper       ReaperConfig
}

// DatabaseConfig — хранилище jobs.
type DatabaseConfig struct {
	// URL — "memory", "sqlite:<path>" или DSN PostgreSQL.
	URL      string
	MaxConns int32
}

// ServerConfig — HTTP-порты сервисов.
type ServerConfig struct {
	APIPort         string
	WorkerPort      string
	ShutdownTimeout time.Duration
}

// MQConfig — RabbitMQ. Пустой URL отключает очередь.
type MQConfig struct {
	URL      string
	Prefetch int
}

// RedisConfig — счётчики jobs. Пустой Addr отключает Redis.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Window    time.Duration
	Retention time.Duration
}

// LLMConfig — OpenAI для writer.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// MediaWikiConfig — бот MediaWiki.
type MediaWikiConfig struct {
	APIURL   string
	Username string
	Password string
	Timeout  time.Duration
}

// CrawlerConfig — параметры crawler'а.
type CrawlerConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// OrchestratorConfig — таймауты выполнения задач.
type OrchestratorConfig struct {
	// TaskTimeout — ограничение на Execute. 0 — без ограничения.
	TaskTimeout  time.Duration
	StoreTimeout time.Duration
}

// ReaperConfig — очистка зависших RUNNING jobs.
type ReaperConfig struct {
	Enabled    bool
	Schedule   string
	StaleAfter time.Duration
	BatchSize  int
}

// Load читает конфигурацию из окружения.
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DB_URL", getEnv("DATABASE_URL", "")),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		},
		Server: ServerConfig{
			APIPort:         getEnv("API_PORT", "8080"),
			WorkerPort:      getEnv("WORKER_PORT", "8082"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		MQ: MQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Prefetch: getEnvAsInt("RABBITMQ_PREFETCH", 1),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			Window:    getEnvAsDuration("ANALYTICS_WINDOW", 5*time.Minute),
			Retention: getEnvAsDuration("ANALYTICS_RETENTION", 7*24*time.Hour),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 2000),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		MediaWiki: MediaWikiConfig{
			APIURL:   getEnv("MEDIAWIKI_API_URL", ""),
			Username: getEnv("MEDIAWIKI_USERNAME", ""),
			Password: getEnv("MEDIAWIKI_PASSWORD", ""),
			Timeout:  getEnvAsDuration("MEDIAWIKI_TIMEOUT", 30*time.Second),
		},
		Crawler: CrawlerConfig{
			Timeout:   getEnvAsDuration("CRAWLER_TIMEOUT", 30*time.Second),
			UserAgent: getEnv("CRAWLER_USER_AGENT", ""),
		},
		Orchestrator: OrchestratorConfig{
			TaskTimeout:  getEnvAsDuration("TASK_TIMEOUT", 0),
			StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		},
		Reaper: ReaperConfig{
			Enabled:    getEnvAsBool("REAPER_ENABLED", true),
			Schedule:   getEnv("REAPER_SCHEDULE", "*/5 * * * *"),
			StaleAfter: getEnvAsDuration("REAPER_STALE_AFTER", time.Hour),
			BatchSize:  getEnvAsInt("REAPER_BATCH_SIZE", 100),
		},
	}
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Database.MaxConns <= 0 {
		fail("DB_MAX_CONNS must be positive")
	}
	if c.Orchestrator.TaskTimeout < 0 {
		fail("TASK_TIMEOUT must not be negative")
	}
	if c.Orchestrator.StoreTimeout <= 0 {
		fail("STORE_TIMEOUT must be positive")
	}
	if c.MQ.Prefetch <= 0 {
		fail("RABBITMQ_PREFETCH must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		fail("OPENAI_TEMPERATURE must be in [0, 2]")
	}
	if c.MediaWiki.APIURL != "" && (c.MediaWiki.Username == "" || c.MediaWiki.Password == "") {
		fail("MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD are required with MEDIAWIKI_API_URL")
	}

	if c.Reaper.Enabled {
		if _, err := reaper.ParseSchedule(c.Reaper.Schedule); err != nil {
			fail("REAPER_SCHEDULE %q: %v", c.Reaper.Schedule, err)
		}
		if c.Reaper.BatchSize <= 0 {
			fail("REAPER_BATCH_SIZE must be positive")
		}
		// Живая задача не должна считаться зависшей.
		if c.Orchestrator.TaskTimeout > 0 && c.Reaper.StaleAfter <= c.Orchestrator.TaskTimeout+c.Orchestrator.StoreTimeout {
			fail("REAPER_STALE_AFTER (%s) must exceed TASK_TIMEOUT + STORE_TIMEOUT (%s)",
				c.Reaper.StaleAfter, c.Orchestrator.TaskTimeout+c.Orchestrator.StoreTimeout)
		}
		if c.Reaper.StaleAfter <= 0 {
			fail("REAPER_STALE_AFTER must be positive")
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
