// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gitlab.com/yelinaung/expense-importer/internal/gemini"
	"gitlab.com/yelinaung/expense-importer/internal/models"
	"gitlab.com/yelinaung/expense-importer/internal/telemetry"
)

// Defaults for optional settings.
const (
	DefaultHTTPAddr           = ":8080"
	DefaultClassifierRate     = 2.0
	DefaultClassifierBurst    = 4
	DefaultIngestWorkers      = 4
	DefaultIngestQueueSize    = 32
	DefaultMaxUploadBytes     = 10 << 20
	DefaultStatusPollInterval = 3 * time.Second
	DefaultServiceName        = "expense-importer"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL string
	HTTPAddr    string

	GeminiAPIKey      string
	GeminiModel       string
	ClassifierTimeout time.Duration
	ClassifierRate    float64
	ClassifierBurst   int
	DefaultCategory   string

	IngestWorkers   int
	IngestQueueSize int
	MaxUploadBytes  int64

	TelegramBotToken     string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string
	StatusPollInterval   time.Duration

	LogLevel        string
	LogFormat       string
	OTelExporter    string
	OTelServiceName string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honoured when present. Malformed optional values fall
// back to their defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPAddr:         stringOr("HTTP_ADDR", DefaultHTTPAddr),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      stringOr("GEMINI_MODEL", gemini.DefaultModel),
		DefaultCategory:  stringOr("DEFAULT_CATEGORY", models.DefaultCategoryLabel),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        strings.ToLower(os.Getenv("LOG_FORMAT")),
		OTelExporter:     strings.ToLower(stringOr("OTEL_EXPORTER", telemetry.ExporterNone)),
		OTelServiceName:  stringOr("OTEL_SERVICE_NAME", DefaultServiceName),
	}

	cfg.ClassifierTimeout = durationOr("CLASSIFIER_TIMEOUT", gemini.DefaultTimeout)
	cfg.StatusPollInterval = durationOr("STATUS_POLL_INTERVAL", DefaultStatusPollInterval)

	cfg.ClassifierRate = DefaultClassifierRate
	if s := os.Getenv("CLASSIFIER_RATE_PER_SECOND"); s != "" {
		if r, err := strconv.ParseFloat(s, 64); err == nil && r >= 0 {
			cfg.ClassifierRate = r
		}
	}
	cfg.ClassifierBurst = positiveIntOr("CLASSIFIER_BURST", DefaultClassifierBurst)
	cfg.IngestWorkers = positiveIntOr("INGEST_WORKERS", DefaultIngestWorkers)
	cfg.IngestQueueSize = positiveIntOr("INGEST_QUEUE_SIZE", DefaultIngestQueueSize)

	cfg.MaxUploadBytes = DefaultMaxUploadBytes
	if s := os.Getenv("MAX_UPLOAD_BYTES"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}

	whitelistStr := os.Getenv("WHITELISTED_USER_IDS")
	if whitelistStr != "" {
		for idStr := range strings.SplitSeq(whitelistStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
		}
	}

	whitelistUsernames := os.Getenv("WHITELISTED_USERNAMES")
	if whitelistUsernames != "" {
		for username := range strings.SplitSeq(whitelistUsernames, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			// Remove @ prefix if present
			username = strings.TrimPrefix(username, "@")
			cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, username)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func positiveIntOr(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if !telemetry.ValidExporter(c.OTelExporter) {
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT %q must be json or console", c.LogFormat))
	}

	if c.BotEnabled() && len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required when TELEGRAM_BOT_TOKEN is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// BotEnabled reports whether the Telegram transport should run.
func (c *Config) BotEnabled() bool {
	return c.TelegramBotToken != ""
}

// AIEnabled reports whether Gemini classification is configured.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	// Usernames compare case-insensitively.
	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}
