package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Lock backends supported by the workflow engine.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Workflow      WorkflowConfig
	Notifications NotificationsConfig
	Dashboard     DashboardConfig
	Analytics     AnalyticsConfig
	Exports       ExportsConfig
	Ratings       RatingsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkflowConfig tunes per-request serialization of status transitions.
type WorkflowConfig struct {
	LockBackend        string
	LockTTL            time.Duration
	LockWait           time.Duration
	MaxConflictRetries int
}

// NotificationsConfig controls the asynchronous notification fan-out.
type NotificationsConfig struct {
	Workers          int
	BufferSize       int
	MaxRetries       int
	RetryDelay       time.Duration
	AudienceCacheTTL time.Duration
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// AnalyticsConfig governs the organisation-wide report.
type AnalyticsConfig struct {
	Enabled   bool
	CacheTTL  time.Duration
	GraceDays int
}

// ExportsConfig gates the training request export endpoint.
type ExportsConfig struct {
	Enabled bool
	MaxRows int
}

// RatingsConfig gates the training ratings endpoints.
type RatingsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("ENABLE_REDIS"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Workflow = WorkflowConfig{
		LockBackend:        strings.ToLower(strings.TrimSpace(v.GetString("WORKFLOW_LOCK_BACKEND"))),
		LockTTL:            parseDuration(v.GetString("WORKFLOW_LOCK_TTL"), 10*time.Second),
		LockWait:           parseDuration(v.GetString("WORKFLOW_LOCK_WAIT"), 3*time.Second),
		MaxConflictRetries: v.GetInt("WORKFLOW_MAX_CONFLICT_RETRIES"),
	}
	if cfg.Workflow.LockBackend != LockBackendRedis {
		cfg.Workflow.LockBackend = LockBackendLocal
	}

	cfg.Notifications = NotificationsConfig{
		Workers:          v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize:       v.GetInt("NOTIFICATIONS_BUFFER"),
		MaxRetries:       v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay:       parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 2*time.Second),
		AudienceCacheTTL: parseDuration(v.GetString("NOTIFICATIONS_AUDIENCE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:   v.GetBool("ENABLE_ANALYTICS"),
		CacheTTL:  parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 5*time.Minute),
		GraceDays: v.GetInt("ANALYTICS_GRACE_DAYS"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
		MaxRows: v.GetInt("EXPORTS_MAX_ROWS"),
	}

	cfg.Ratings = RatingsConfig{
		Enabled: v.GetBool("ENABLE_RATINGS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lifemakers_pirates")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "pirates:")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "lifemakers-pirates")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WORKFLOW_LOCK_BACKEND", LockBackendLocal)
	v.SetDefault("WORKFLOW_LOCK_TTL", "10s")
	v.SetDefault("WORKFLOW_LOCK_WAIT", "3s")
	v.SetDefault("WORKFLOW_MAX_CONFLICT_RETRIES", 3)

	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "2s")
	v.SetDefault("NOTIFICATIONS_AUDIENCE_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
	v.SetDefault("ENABLE_ANALYTICS", true)
	v.SetDefault("ANALYTICS_CACHE_TTL", "5m")
	v.SetDefault("ANALYTICS_GRACE_DAYS", 7)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_MAX_ROWS", 5000)

	v.SetDefault("ENABLE_RATINGS", true)
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
