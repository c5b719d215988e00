package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Tickets      TicketsConfig
	Scheduler    SchedulerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// ApplicationName tags server-side sessions (pg_stat_activity).
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	ReportCacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how bearer tokens from the identity provider are verified.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds push delivery settings.
type NotificationConfig struct {
	FCMProjectID       string
	FCMCredentialsFile string
	FCMEndpoint        string
	BaseURL            string
	TimeoutSeconds     int
	Workers            int
	QueueSize          int
	Inline             bool
}

// SLAConfig holds default resolution targets and reporting windows.
type SLAConfig struct {
	LowHours          int
	MediumHours       int
	HighHours         int
	UrgentHours       int
	ReportWindowDays  int
	DueSoonMinutes    int
	ReportTopRows     int
	RecurrenceMinimum int
}

// TicketsConfig toggles lifecycle policies.
type TicketsConfig struct {
	TakeAutoStart     bool
	AutoAssignDefault bool
}

// SchedulerConfig holds cron expressions for background housekeeping.
type SchedulerConfig struct {
	Enabled          bool
	DevicePruneSpec  string
	DeviceStaleDays  int
	ReportWarmupSpec string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "averias-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ApplicationName: getEnv("APP_NAME", "averias-service"),
		},
		Redis: RedisConfig{
			Addr:                  getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:              os.Getenv("REDIS_PASSWORD"),
			DB:                    redisDB,
			ReportCacheTTLSeconds: getEnvAsInt("REPORT_CACHE_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_JWT_ISSUER", ""),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			FCMProjectID:       os.Getenv("FCM_PROJECT_ID"),
			FCMCredentialsFile: os.Getenv("FCM_CREDENTIALS_FILE"),
			FCMEndpoint:        getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8080"),
			TimeoutSeconds:     getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 5),
			Workers:            getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize:          getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			Inline:             getEnvAsBool("NOTIFY_INLINE", false),
		},
		SLA: SLAConfig{
			LowHours:          getEnvAsInt("SLA_HOURS_LOW", 72),
			MediumHours:       getEnvAsInt("SLA_HOURS_MEDIUM", 24),
			HighHours:         getEnvAsInt("SLA_HOURS_HIGH", 8),
			UrgentHours:       getEnvAsInt("SLA_HOURS_URGENT", 4),
			ReportWindowDays:  getEnvAsInt("REPORT_WINDOW_DAYS", 90),
			DueSoonMinutes:    getEnvAsInt("DASHBOARD_DUE_SOON_MINUTES", 120),
			ReportTopRows:     getEnvAsInt("REPORT_TOP_TECHNICIANS", 10),
			RecurrenceMinimum: getEnvAsInt("REPORT_RECURRENCE_MIN", 2),
		},
		Tickets: TicketsConfig{
			TakeAutoStart:     getEnvAsBool("TICKETS_TAKE_AUTO_START", false),
			AutoAssignDefault: getEnvAsBool("TICKETS_AUTO_ASSIGN_DEFAULT", false),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getEnvAsBool("SCHEDULER_ENABLED", true),
			DevicePruneSpec:  getEnv("SCHEDULER_DEVICE_PRUNE_SPEC", "30 3 * * *"),
			DeviceStaleDays:  getEnvAsInt("DEVICE_STALE_DAYS", 60),
			ReportWarmupSpec: getEnv("SCHEDULER_REPORT_WARMUP_SPEC", "*/5 * * * *"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ReportCacheTTL returns how long a computed dashboard stays cached.
func (r RedisConfig) ReportCacheTTL() time.Duration {
	if r.ReportCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.ReportCacheTTLSeconds) * time.Second
}

// Timeout bounds a single notifier call.
func (n NotificationConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// PushEnabled reports whether FCM credentials were supplied.
func (n NotificationConfig) PushEnabled() bool {
	return n.FCMProjectID != "" && n.FCMCredentialsFile != ""
}

// ReportWindow returns the trailing reporting window.
func (s SLAConfig) ReportWindow() time.Duration {
	days := s.ReportWindowDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

// DueSoon returns the look-ahead used by the dashboard "due soon" counter.
func (s SLAConfig) DueSoon() time.Duration {
	if s.DueSoonMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(s.DueSoonMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
