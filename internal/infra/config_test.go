package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("GENAPI_API_KEY", "test-key")
	t.Setenv("PORT", "")
	t.Setenv("POLL_TICK_SECONDS", "")
	t.Setenv("JOB_MAX_LIFETIME_MINUTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.PollTick != 5*time.Second {
		t.Fatalf("PollTick = %s, want 5s", cfg.PollTick)
	}
	if cfg.PollBatchSize != 20 || cfg.PollWorkers != 4 {
		t.Fatalf("poll defaults = (%d, %d)", cfg.PollBatchSize, cfg.PollWorkers)
	}
	if cfg.MaxJobLifetime != 30*time.Minute {
		t.Fatalf("MaxJobLifetime = %s, want 30m", cfg.MaxJobLifetime)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("GENAPI_API_KEY", "test-key")
	t.Setenv("POLL_TICK_SECONDS", "2")
	t.Setenv("POLL_BATCH_SIZE", "50")
	t.Setenv("JOB_MAX_LIFETIME_MINUTES", "10")
	t.Setenv("GENAPI_BASE_URL", "http://localhost:9999")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollTick != 2*time.Second {
		t.Fatalf("PollTick = %s, want 2s", cfg.PollTick)
	}
	if cfg.PollBatchSize != 50 {
		t.Fatalf("PollBatchSize = %d, want 50", cfg.PollBatchSize)
	}
	if cfg.MaxJobLifetime != 10*time.Minute {
		t.Fatalf("MaxJobLifetime = %s, want 10m", cfg.MaxJobLifetime)
	}
	if cfg.GenAPIBaseURL != "http://localhost:9999" {
		t.Fatalf("GenAPIBaseURL = %q", cfg.GenAPIBaseURL)
	}
}

func TestLoadConfigRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GENAPI_API_KEY", "test-key")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL missing")
	}

	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("GENAPI_API_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when GENAPI_API_KEY missing")
	}
}
