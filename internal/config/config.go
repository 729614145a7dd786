// Package config holds all application configuration, read from
// environment variables with sensible defaults.
//
// Environment Variables:
//
// Remote service:
//   - REMOTE_API_URL: translate/summarize endpoint URL (required)
//   - REMOTE_API_KEY: bearer token for the endpoint (optional)
//   - REMOTE_CALL_TIMEOUT: overall per-call timeout (default: 45s)
//   - REMOTE_MAX_RETRIES: attempts per call (default: 5)
//   - REMOTE_BASE_DELAY: backoff seed (default: 500ms)
//   - REMOTE_MAX_DELAY: backoff cap (default: 10s)
//
// Result cache:
//   - CACHE_MAX_ENTRIES: entry count before eviction (default: 50)
//   - CACHE_TRANSLATION_TTL: translation entry TTL (default: 24h)
//   - CACHE_SUMMARY_TTL: summary entry TTL (default: 6h)
//   - CACHE_SWEEP_CRON: expired-entry sweep schedule (default: @hourly)
//   - CACHE_DB_PATH: sqlite file for persistence (default: ./data/pageglot.db)
//
// Scheduling:
//   - BATCH_SIZE: units per batch (default: 6)
//   - BATCH_DELAY: minimum inter-batch delay (default: 400ms)
//   - PASS_TIMEOUT: full-pass timeout per session (default: 120s)
//   - SETTLE_DELAY: post-navigation settle delay (default: 500ms)
//
// System:
//   - HTTP_ADDR: control API listen address (default: :8085)
//   - DEFAULT_TARGET_LANGUAGE: target used when requests omit one (default: en)
//   - LOG_LEVEL: debug|info|warn|error (default: info)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/pageglot/pageglot/internal/remote"
)

type Config struct {
	Remote    RemoteConfig    `json:"remote"`
	Cache     CacheConfig     `json:"cache"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Session   SessionConfig   `json:"session"`
	System    SystemConfig    `json:"system"`
}

// RemoteConfig holds the remote translation service configuration.
type RemoteConfig struct {
	APIURL      string        `json:"api_url"`
	APIKey      string        `json:"api_key"`
	CallTimeout time.Duration `json:"call_timeout"`
	MaxRetries  int           `json:"max_retries"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
}

// CacheConfig holds the result cache configuration.
type CacheConfig struct {
	MaxEntries     int           `json:"max_entries"`
	TranslationTTL time.Duration `json:"translation_ttl"`
	SummaryTTL     time.Duration `json:"summary_ttl"`
	SweepCron      string        `json:"sweep_cron"`
	DBPath         string        `json:"db_path"`
}

// SchedulerConfig holds batch sizing and pacing.
type SchedulerConfig struct {
	BatchSize       int           `json:"batch_size"`
	InterBatchDelay time.Duration `json:"inter_batch_delay"`
}

// SessionConfig holds per-session timing.
type SessionConfig struct {
	PassTimeout time.Duration `json:"pass_timeout"`
	SettleDelay time.Duration `json:"settle_delay"`
}

// SystemConfig holds process-level settings.
type SystemConfig struct {
	HTTPAddr       string       `json:"http_addr"`
	TargetLanguage language.Tag `json:"target_language"`
	LogLevel       string       `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from
// environment variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Remote: RemoteConfig{
			APIURL:      getEnvString("REMOTE_API_URL", ""),
			APIKey:      getEnvString("REMOTE_API_KEY", ""),
			CallTimeout: getEnvDuration("REMOTE_CALL_TIMEOUT", 45*time.Second),
			MaxRetries:  getEnvInt("REMOTE_MAX_RETRIES", 5),
			BaseDelay:   getEnvDuration("REMOTE_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:    getEnvDuration("REMOTE_MAX_DELAY", 10*time.Second),
		},
		Cache: CacheConfig{
			MaxEntries:     getEnvInt("CACHE_MAX_ENTRIES", 50),
			TranslationTTL: getEnvDuration("CACHE_TRANSLATION_TTL", 24*time.Hour),
			SummaryTTL:     getEnvDuration("CACHE_SUMMARY_TTL", 6*time.Hour),
			SweepCron:      getEnvString("CACHE_SWEEP_CRON", "@hourly"),
			DBPath:         getEnvString("CACHE_DB_PATH", "./data/pageglot.db"),
		},
		Scheduler: SchedulerConfig{
			BatchSize:       getEnvInt("BATCH_SIZE", 6),
			InterBatchDelay: getEnvDuration("BATCH_DELAY", 400*time.Millisecond),
		},
		Session: SessionConfig{
			PassTimeout: getEnvDuration("PASS_TIMEOUT", 120*time.Second),
			SettleDelay: getEnvDuration("SETTLE_DELAY", 500*time.Millisecond),
		},
		System: SystemConfig{
			HTTPAddr: getEnvString("HTTP_ADDR", ":8085"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	target := getEnvString("DEFAULT_TARGET_LANGUAGE", "en")
	tag, err := remote.SupportedLanguage(target)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TARGET_LANGUAGE %q: %w", target, err)
	}
	config.System.TargetLanguage = tag

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate checks all required configuration is properly set.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Remote.APIURL) == "" {
		return fmt.Errorf("REMOTE_API_URL is required")
	}
	if c.Remote.MaxRetries <= 0 {
		return fmt.Errorf("REMOTE_MAX_RETRIES must be positive")
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if _, err := cron.ParseStandard(c.Cache.SweepCron); err != nil {
		return fmt.Errorf("invalid CACHE_SWEEP_CRON: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment variables with default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
