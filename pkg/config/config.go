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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Lease         LeaseConfig
	Idempotency   IdempotencyConfig
	Notifications NotificationsConfig
	Exports       ExportsConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LeaseConfig bounds lease durations and controls the expiry sweeper.
type LeaseConfig struct {
	DefaultDuration time.Duration
	MaxDuration     time.Duration
	SweeperEnabled  bool
	SweepInterval   time.Duration
}

// IdempotencyConfig controls retention of recorded responses.
type IdempotencyConfig struct {
	RetentionWindow time.Duration
}

// NotificationsConfig controls event fan-out to subscribers.
type NotificationsConfig struct {
	RedisEnabled      bool
	RedisChannel      string
	StreamEnabled     bool
	WebhookEndpoints  []string
	WebhookWorkers    int
	WebhookRetries    int
	WebhookRetryDelay time.Duration
	WebhookTimeout    time.Duration
}

// ExportsConfig gates the administrative case export endpoints.
type ExportsConfig struct {
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
		if !errors.As(err, &notFound) {
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Lease = LeaseConfig{
		DefaultDuration: parseDuration(v.GetString("LEASE_DEFAULT_DURATION"), 30*time.Minute),
		MaxDuration:     parseDuration(v.GetString("LEASE_MAX_DURATION"), 24*time.Hour),
		SweeperEnabled:  v.GetBool("LEASE_SWEEPER_ENABLED"),
		SweepInterval:   parseDuration(v.GetString("LEASE_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Idempotency = IdempotencyConfig{
		RetentionWindow: parseDuration(v.GetString("IDEMPOTENCY_RETENTION"), 24*time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		RedisEnabled:      v.GetBool("NOTIFY_REDIS_ENABLED"),
		RedisChannel:      v.GetString("NOTIFY_REDIS_CHANNEL"),
		StreamEnabled:     v.GetBool("NOTIFY_STREAM_ENABLED"),
		WebhookEndpoints:  splitAndTrim(v.GetString("NOTIFY_WEBHOOK_ENDPOINTS")),
		WebhookWorkers:    v.GetInt("NOTIFY_WEBHOOK_WORKERS"),
		WebhookRetries:    v.GetInt("NOTIFY_WEBHOOK_RETRIES"),
		WebhookRetryDelay: parseDuration(v.GetString("NOTIFY_WEBHOOK_RETRY_DELAY"), 5*time.Second),
		WebhookTimeout:    parseDuration(v.GetString("NOTIFY_WEBHOOK_TIMEOUT"), 10*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8001)
	v.SetDefault("API_PREFIX", "/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "caseflow")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "caseflow-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LEASE_DEFAULT_DURATION", "30m")
	v.SetDefault("LEASE_MAX_DURATION", "24h")
	v.SetDefault("LEASE_SWEEPER_ENABLED", true)
	v.SetDefault("LEASE_SWEEP_INTERVAL", "1m")

	v.SetDefault("IDEMPOTENCY_RETENTION", "24h")

	v.SetDefault("NOTIFY_REDIS_ENABLED", false)
	v.SetDefault("NOTIFY_REDIS_CHANNEL", "caseflow.events")
	v.SetDefault("NOTIFY_STREAM_ENABLED", true)
	v.SetDefault("NOTIFY_WEBHOOK_ENDPOINTS", "")
	v.SetDefault("NOTIFY_WEBHOOK_WORKERS", 2)
	v.SetDefault("NOTIFY_WEBHOOK_RETRIES", 3)
	v.SetDefault("NOTIFY_WEBHOOK_RETRY_DELAY", "5s")
	v.SetDefault("NOTIFY_WEBHOOK_TIMEOUT", "10s")

	v.SetDefault("ENABLE_EXPORTS", false)
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
