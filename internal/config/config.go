package config

import (
	"fmt"
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/platform/envutil"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds every environment-backed setting read at startup. Components
// receive the values they need; nothing reads the environment after boot.
type Config struct {
	AppEnv   string
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr    string
	RedisChannel string

	JWTSecretKey string

	UploadDir      string
	TempExtractDir string

	MaxFileSizeMB       int64
	MaxEpicExportSizeMB int64

	IngestionBatchSize         int
	IngestionWorkerConcurrency int

	CORSOrigins []string
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:   envutil.Str("APP_ENV", "development"),
		HTTPAddr: envutil.Str("HTTP_ADDR", ":8080"),

		DBHost:     envutil.Str("DB_HOST", "localhost"),
		DBPort:     envutil.Str("DB_PORT", "5432"),
		DBUser:     envutil.Str("DB_USER", "postgres"),
		DBPassword: envutil.Str("DB_PASSWORD", ""),
		DBName:     envutil.Str("DB_NAME", "medtimeline"),
		DBSSLMode:  envutil.Str("DB_SSLMODE", "disable"),

		RedisAddr:    envutil.Str("REDIS_ADDR", ""),
		RedisChannel: envutil.Str("REDIS_CHANNEL", "ingest.progress"),

		JWTSecretKey: envutil.Str("JWT_SECRET_KEY", defaultJWTSecret),

		UploadDir:      envutil.Str("UPLOAD_DIR", "./data/uploads"),
		TempExtractDir: envutil.Str("TEMP_EXTRACT_DIR", "./data/tmp"),

		MaxFileSizeMB:       envutil.Int64("MAX_FILE_SIZE_MB", 500),
		MaxEpicExportSizeMB: envutil.Int64("MAX_EPIC_EXPORT_SIZE_MB", 5000),

		IngestionBatchSize:         envutil.Int("INGESTION_BATCH_SIZE", 100),
		IngestionWorkerConcurrency: envutil.Int("INGESTION_WORKER_CONCURRENCY", 1),

		CORSOrigins: splitOrigins(envutil.Str("CORS_ORIGINS", "http://localhost:3000")),
	}

	if cfg.IngestionBatchSize < 1 {
		cfg.IngestionBatchSize = 1
	}
	if cfg.IngestionWorkerConcurrency < 1 {
		cfg.IngestionWorkerConcurrency = 1
	}

	// Fail fast rather than serve PHI behind a known secret.
	if cfg.AppEnv != "development" && cfg.JWTSecretKey == defaultJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be changed from default in %s", cfg.AppEnv)
	}

	return cfg, nil
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func (c *Config) MaxEpicExportBytes() int64 {
	return c.MaxEpicExportSizeMB * 1024 * 1024
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
