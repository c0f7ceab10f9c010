package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASK_TIMEOUT", "")

	cfg := Load()
	if cfg.Server.APIPort != "8080" || cfg.Server.WorkerPort != "8082" {
		t.Errorf("unexpected ports %+v", cfg.Server)
	}
	if cfg.Orchestrator.TaskTimeout != 0 || cfg.Orchestrator.StoreTimeout != 10*time.Second {
		t.Errorf("unexpected orchestrator config %+v", cfg.Orchestrator)
	}
	if !cfg.Reaper.Enabled || cfg.Reaper.StaleAfter != time.Hour {
		t.Errorf("unexpected reaper config %+v", cfg.Reaper)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must be valid: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_URL", "sqlite:jobs.db")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("TASK_TIMEOUT", "2m")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("REAPER_ENABLED", "off")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	if cfg.Database.URL != "sqlite:jobs.db" || cfg.Database.MaxConns != 25 {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Orchestrator.TaskTimeout != 2*time.Minute {
		t.Errorf("unexpected task timeout %v", cfg.Orchestrator.TaskTimeout)
	}
	if cfg.LLM.Temperature < 0.19 || cfg.LLM.Temperature > 0.21 {
		t.Errorf("unexpected temperature %v", cfg.LLM.Temperature)
	}
	if cfg.Reaper.Enabled {
		t.Error("reaper should be disabled")
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.Redis.DB)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad schedule", func(c *Config) { c.Reaper.Schedule = "every minute" }, "REAPER_SCHEDULE"},
		{"descriptor schedule", func(c *Config) { c.Reaper.Schedule = "@hourly" }, ""},
		{"stale shorter than task", func(c *Config) {
			c.Orchestrator.TaskTimeout = 50 * time.Minute
			c.Reaper.StaleAfter = 50 * time.Minute
		}, "REAPER_STALE_AFTER"},
		{"disabled reaper skips checks", func(c *Config) {
			c.Reaper.Enabled = false
			c.Reaper.Schedule = "bad"
		}, ""},
		{"wiki without credentials", func(c *Config) { c.MediaWiki.APIURL = "http://wiki/api.php" }, "MEDIAWIKI_USERNAME"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "OPENAI_TEMPERATURE"},
		{"store timeout", func(c *Config) { c.Orchestrator.StoreTimeout = 0 }, "STORE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q error, got %v", tt.wantErr, err)
			}
		})
	}
}
