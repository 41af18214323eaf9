package config

import (
	"time"

	"github.com/bdougie/vitals/internal/domain"
)

// Store backends selectable via VITALS_STORE_BACKEND.
const (
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config holds runtime configuration for the telemetry pipeline.
type Config struct {
	Environment string
	Addr        string

	StoreBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SampleTTL     time.Duration
	AggregateTTL  time.Duration
	AlertTTL      time.Duration

	DatabaseURL   string
	MigrationsDir string

	AdminToken    string
	DeployID      string
	DeployContext string

	Thresholds   domain.AlertThresholds
	EvalInterval time.Duration

	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// Load constructs a Config from environment variables. Threshold defaults
// are the stock alerting ceilings.
func Load() Config {
	defaults := domain.DefaultThresholds()
	return Config{
		Environment: GetString("APP_ENV", "development"),
		Addr:        GetString("VITALS_ADDR", ":4600"),

		StoreBackend: GetString("VITALS_STORE_BACKEND", StoreBackendRedis),

		RedisAddr:     GetString("VITALS_REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetString("VITALS_REDIS_PASSWORD", ""),
		RedisDB:       GetInt("VITALS_REDIS_DB", 0),
		SampleTTL:     time.Duration(GetInt("VITALS_SAMPLE_TTL_DAYS", 7)) * 24 * time.Hour,
		AggregateTTL:  time.Duration(GetInt("VITALS_AGGREGATE_TTL_DAYS", 30)) * 24 * time.Hour,
		AlertTTL:      time.Duration(GetInt("VITALS_ALERT_TTL_DAYS", 90)) * 24 * time.Hour,

		DatabaseURL:   GetString("DATABASE_URL", "postgres://vitals:vitals@db:5432/vitals?sslmode=disable"),
		MigrationsDir: GetString("DB_MIGRATIONS_DIR", "./db/migrations"),

		AdminToken:    GetString("VITALS_ADMIN_TOKEN", ""),
		DeployID:      GetString("DEPLOY_ID", ""),
		DeployContext: GetString("DEPLOY_CONTEXT", ""),

		Thresholds: domain.AlertThresholds{
			LCP:                 GetFloat("ALERT_LCP_MS", defaults.LCP),
			CLS:                 GetFloat("ALERT_CLS", defaults.CLS),
			FID:                 GetFloat("ALERT_FID_MS", defaults.FID),
			INP:                 GetFloat("ALERT_INP_MS", defaults.INP),
			ConsecutiveFailures: GetInt("ALERT_CONSECUTIVE_FAILURES", defaults.ConsecutiveFailures),
		},
		EvalInterval: time.Duration(GetInt("ALERT_EVAL_INTERVAL_HOURS", 0)) * time.Hour,

		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
