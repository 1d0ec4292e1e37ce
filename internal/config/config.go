package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string

	// Content store
	ContentStore   string // minio or gcs
	ContentBucket  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// Retrieval index
	MeiliURL       string
	MeiliMasterKey string

	// Push updates; empty disables publishing
	RedisURL string

	// LLM Configuration
	LLMProvider     string
	LLMModel        string
	AnthropicAPIKey string

	// Workers
	IngestWorkers         int
	ExtractionConcurrency int
	TTLSweepInterval      time.Duration

	// Quotas; zero means unlimited
	OrgStorageQuotaBytes     int64
	ProjectStorageQuotaBytes int64

	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("AUTH_JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		ContentStore:   strings.ToLower(getEnv("CONTENT_STORE", "minio")),
		ContentBucket:  getEnv("CONTENT_BUCKET", "corpus"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		MeiliURL:       getEnv("MEILI_URL", "http://localhost:7700"),
		MeiliMasterKey: getEnv("MEILI_MASTER_KEY", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		LLMProvider:     getEnv("LLM_PROVIDER", "anthropic"),
		LLMModel:        getEnv("LLM_MODEL", "claude-haiku-4-5-20251001"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		IngestWorkers:         getEnvInt("INGEST_WORKERS", 4),
		ExtractionConcurrency: getEnvInt("EXTRACTION_CONCURRENCY", 8),
		TTLSweepInterval:      getEnvDuration("TTL_SWEEP_INTERVAL", time.Hour),

		OrgStorageQuotaBytes:     getEnvInt64("ORG_STORAGE_QUOTA_BYTES", 0),
		ProjectStorageQuotaBytes: getEnvInt64("PROJECT_STORAGE_QUOTA_BYTES", 0),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
	}
}

// IsDev reports whether debug-level logging should be enabled
func (c *Config) IsDev() bool {
	return c.Environment == "dev" || c.Environment == "test"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvInt64(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
