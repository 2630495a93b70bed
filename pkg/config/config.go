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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Policy    PolicyConfig
	Sync      SyncConfig
	Activity  ActivityAPIConfig
	Notifier  NotifierConfig
	Scheduler SchedulerConfig
	Exports   ExportsConfig
	Roster    RosterConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PolicyConfig defines the removal policy thresholds. All three knobs are
// read from the environment so operators can retune them without a deploy.
type PolicyConfig struct {
	MinActivityMinutes    int
	RemovalWarningDays    int
	MinEndorsementAgeDays int
	ActivityLookbackDays  int
}

// SyncConfig tunes the activity sync tick.
type SyncConfig struct {
	Limit    int
	LeaseTTL time.Duration
}

// ActivityAPIConfig points at the external activity source.
type ActivityAPIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NotifierConfig points at the notification dispatcher webhook.
type NotifierConfig struct {
	WebhookURL string
	Timeout    time.Duration
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// SchedulerConfig controls the in-process periodic runner. When disabled the
// sync-activities and remove-endorsements binaries are expected to run under
// an external cron.
type SchedulerConfig struct {
	Enabled          bool
	SyncInterval     time.Duration
	RemovalInterval  time.Duration
	RemovalNotify    bool
	RemovalLeaseTTL  time.Duration
	ShutdownDeadline time.Duration
}

// ExportsConfig controls audit trail export storage.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// RosterConfig governs caching for the endorsement roster endpoint.
type RosterConfig struct {
	CacheTTL time.Duration
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Policy = PolicyConfig{
		MinActivityMinutes:    v.GetInt("MIN_ACTIVITY_MINUTES"),
		RemovalWarningDays:    v.GetInt("REMOVAL_WARNING_DAYS"),
		MinEndorsementAgeDays: v.GetInt("MIN_ENDORSEMENT_AGE_DAYS"),
		ActivityLookbackDays:  v.GetInt("ACTIVITY_LOOKBACK_DAYS"),
	}

	cfg.Sync = SyncConfig{
		Limit:    v.GetInt("SYNC_LIMIT"),
		LeaseTTL: parseDuration(v.GetString("SYNC_LEASE_TTL"), 5*time.Minute),
	}

	cfg.Activity = ActivityAPIConfig{
		BaseURL: v.GetString("ACTIVITY_API_BASE_URL"),
		Token:   v.GetString("ACTIVITY_API_TOKEN"),
		Timeout: parseDuration(v.GetString("ACTIVITY_API_TIMEOUT"), 10*time.Second),
	}

	cfg.Notifier = NotifierConfig{
		WebhookURL: v.GetString("NOTIFIER_WEBHOOK_URL"),
		Timeout:    parseDuration(v.GetString("NOTIFIER_TIMEOUT"), 5*time.Second),
		Workers:    v.GetInt("NOTIFIER_WORKERS"),
		Retries:    v.GetInt("NOTIFIER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFIER_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:          v.GetBool("ENABLE_SCHEDULER"),
		SyncInterval:     parseDuration(v.GetString("SYNC_INTERVAL"), time.Minute),
		RemovalInterval:  parseDuration(v.GetString("REMOVAL_INTERVAL"), 24*time.Hour),
		RemovalNotify:    v.GetBool("REMOVAL_NOTIFY"),
		RemovalLeaseTTL:  parseDuration(v.GetString("REMOVAL_LEASE_TTL"), time.Hour),
		ShutdownDeadline: parseDuration(v.GetString("SCHEDULER_SHUTDOWN_DEADLINE"), 30*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_AUDIT_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Roster = RosterConfig{
		CacheTTL: parseDuration(v.GetString("ROSTER_CACHE_TTL"), 5*time.Minute),
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
	v.SetDefault("DB_NAME", "atc_endorsements")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MIN_ACTIVITY_MINUTES", 180)
	v.SetDefault("REMOVAL_WARNING_DAYS", 31)
	v.SetDefault("MIN_ENDORSEMENT_AGE_DAYS", 180)
	v.SetDefault("ACTIVITY_LOOKBACK_DAYS", 180)

	v.SetDefault("SYNC_LIMIT", 1)
	v.SetDefault("SYNC_LEASE_TTL", "5m")

	v.SetDefault("ACTIVITY_API_BASE_URL", "http://localhost:9090")
	v.SetDefault("ACTIVITY_API_TOKEN", "")
	v.SetDefault("ACTIVITY_API_TIMEOUT", "10s")

	v.SetDefault("NOTIFIER_WEBHOOK_URL", "")
	v.SetDefault("NOTIFIER_TIMEOUT", "5s")
	v.SetDefault("NOTIFIER_WORKERS", 1)
	v.SetDefault("NOTIFIER_RETRIES", 3)
	v.SetDefault("NOTIFIER_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_SCHEDULER", false)
	v.SetDefault("SYNC_INTERVAL", "1m")
	v.SetDefault("REMOVAL_INTERVAL", "24h")
	v.SetDefault("REMOVAL_NOTIFY", false)
	v.SetDefault("REMOVAL_LEASE_TTL", "1h")
	v.SetDefault("SCHEDULER_SHUTDOWN_DEADLINE", "30s")

	v.SetDefault("ENABLE_AUDIT_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("ROSTER_CACHE_TTL", "5m")
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
