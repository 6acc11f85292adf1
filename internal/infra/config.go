package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	StoragePath      string
	StorageBaseURL   string
	GeoIPDBPath      string
	GenAPIBaseURL    string
	GenAPIKey        string
	GenAPITimeout    time.Duration
	IngestTimeout    time.Duration
	PollTick         time.Duration
	PollBatchSize    int
	PollWorkers      int
	MaxJobLifetime   time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		GenAPIBaseURL:    getEnv("GENAPI_BASE_URL", "https://api.artforge.ai"),
		GenAPIKey:        os.Getenv("GENAPI_API_KEY"),
		GenAPITimeout:    time.Second * time.Duration(getEnvInt("GENAPI_TIMEOUT_SECONDS", 30)),
		IngestTimeout:    time.Second * time.Duration(getEnvInt("INGEST_TIMEOUT_SECONDS", 60)),
		PollTick:         time.Second * time.Duration(getEnvInt("POLL_TICK_SECONDS", 5)),
		PollBatchSize:    getEnvInt("POLL_BATCH_SIZE", 20),
		PollWorkers:      getEnvInt("POLL_WORKERS", 4),
		MaxJobLifetime:   time.Minute * time.Duration(getEnvInt("JOB_MAX_LIFETIME_MINUTES", 30)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		CORSOrigins:      splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.GenAPIKey == "" {
		return nil, fmt.Errorf("GENAPI_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
