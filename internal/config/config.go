package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	MongoDB MongoDBConfig
	Metrics MetricsConfig
	Redis   RedisConfig
	Sheets  SheetsConfig
	Notify  NotifyConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// MetricsConfig holds the monthly metrics job settings.
type MetricsConfig struct {
	CronSchedule string
	Timezone     string
	// MonthOffset is added to the current month when the scheduler picks its period.
	MonthOffset int
	Concurrency int
	JobTimeout  time.Duration
	LockTTL     time.Duration
	CronSecret  string
}

// RedisConfig enables the distributed metrics lock when Address is set.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// SheetsConfig enables the Google Sheets export when both fields are set.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// NotifyConfig enables batch summary notifications when WebhookURL is set.
type NotifyConfig struct {
	WebhookURL string
	Token      string
}

// Enabled reports whether the Redis lock is configured.
func (c RedisConfig) Enabled() bool { return c.Address != "" }

// Enabled reports whether the Sheets export is configured.
func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" && c.SpreadsheetID != "" }

// Enabled reports whether notifications are configured.
func (c NotifyConfig) Enabled() bool { return c.WebhookURL != "" }

// Location resolves the configured timezone.
func (c MetricsConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	monthOffset, err := getenvInt("METRICS_MONTH_OFFSET", 0)
	if err != nil {
		return nil, err
	}
	concurrency, err := getenvInt("METRICS_CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}
	jobTimeout, err := getenvDuration("METRICS_JOB_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getenvDuration("METRICS_LOCK_TTL", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	redisDB, err := getenvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "stockmetrics"),
		},
		Metrics: MetricsConfig{
			CronSchedule: getenvWithDefault("METRICS_CRON_SCHEDULE", "0 2 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
			MonthOffset:  monthOffset,
			Concurrency:  concurrency,
			JobTimeout:   jobTimeout,
			LockTTL:      lockTTL,
			CronSecret:   os.Getenv("CRON_SECRET"),
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Token:      os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if _, err := cron.ParseStandard(c.Metrics.CronSchedule); err != nil {
		return fmt.Errorf("METRICS_CRON_SCHEDULE is invalid: %w", err)
	}

	if c.Metrics.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := c.Metrics.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Metrics.MonthOffset > 0 {
		return errors.New("METRICS_MONTH_OFFSET must not be positive")
	}
	if c.Metrics.Concurrency < 1 {
		return errors.New("METRICS_CONCURRENCY must be at least 1")
	}
	if c.Metrics.JobTimeout <= 0 {
		return errors.New("METRICS_JOB_TIMEOUT must be positive")
	}
	if c.Metrics.LockTTL <= 0 {
		return errors.New("METRICS_LOCK_TTL must be positive")
	}
	if c.Metrics.CronSecret == "" {
		return errors.New("CRON_SECRET must be provided")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
