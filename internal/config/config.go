// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/govalues/money"
	"golang.org/x/text/language"
)

type Config struct {
	// HTTP Server
	Port string `env:"PORT" envDefault:"8081"`

	// Persistence
	DataBackend  string `env:"DATA_BACKEND" envDefault:"file"`
	DataFile     string `env:"DATA_FILE" envDefault:"./data/faturas.json"`
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/faturas.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// AMQP; an empty URL disables messaging
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"faturas"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"invoice_events"`

	// Closing reports
	ReportExporter           string `env:"REPORT_EXPORTER" envDefault:"none"`
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Classification
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	ClassifyTimeout time.Duration `env:"CLASSIFY_TIMEOUT" envDefault:"15s"`

	// Presentation
	Locale   string `env:"LOCALE" envDefault:"en"`
	Currency string `env:"CURRENCY" envDefault:"BRL"`

	// Password gate; an empty hash disables it
	AuthPasswordHash string        `env:"AUTH_PASSWORD_HASH"`
	AuthSecret       string        `env:"AUTH_SECRET"`
	AuthTokenTTL     time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"720h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

var (
	validBackends  = []string{"memory", "file", "sqlite", "postgres"}
	validExporters = []string{"none", "sheets", "queue"}
	validFormats   = []string{"text", "json", "tint"}
)

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case "file":
		if strings.TrimSpace(c.DataFile) == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// or postgresql:// URL")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !oneOf(c.ReportExporter, validExporters) {
		errors = append(errors, fmt.Sprintf("invalid report exporter '%s': must be one of %v", c.ReportExporter, validExporters))
	}
	switch c.ReportExporter {
	case "sheets":
		errors = append(errors, c.sheetsErrors()...)
	case "queue":
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required when using queue report exporter")
		}
	}

	if c.ClassifyTimeout < time.Second || c.ClassifyTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid classify timeout %v: must be between 1s and 2m", c.ClassifyTimeout))
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}
	if _, err := money.ParseCurr(c.Currency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': %v", c.Currency, err))
	}

	if c.AuthPasswordHash != "" {
		if !strings.HasPrefix(c.AuthPasswordHash, "$2") {
			errors = append(errors, "AUTH_PASSWORD_HASH must be a bcrypt hash (see faturas-passwd)")
		}
		if len(c.AuthSecret) < 16 {
			errors = append(errors, "AUTH_SECRET must be at least 16 characters when the password gate is enabled")
		}
		if c.AuthTokenTTL <= 0 {
			errors = append(errors, fmt.Sprintf("invalid auth token TTL %v: must be positive", c.AuthTokenTTL))
		}
	}

	if !oneOf(c.LogFormat, validFormats) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the requirements of the report worker.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	errors = append(errors, c.sheetsErrors()...)
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) sheetsErrors() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for sheets export")
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
	}
	return errors
}

// AuthEnabled reports whether the password gate is configured.
func (c *Config) AuthEnabled() bool { return c.AuthPasswordHash != "" }

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
