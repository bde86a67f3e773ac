// Package cli provides the bootstrap shared by the faturas binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"faturas/internal/amqp"
	"faturas/internal/backend"
	"faturas/internal/cache"
	"faturas/internal/classify"
	"faturas/internal/config"
	"faturas/internal/log"
	"faturas/internal/report"
	"faturas/internal/sheets"
	gsheet "faturas/internal/sheets/google"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs the given checks.
// It exits the process when loading or any check fails; logging is not
// configured yet, so failures go to stderr.
func LoadAndValidateConfig(checks ...func(*config.Config) error) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	return cfg
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// OpenBackend opens the configured ledger repository.
// Returns the backend or exits the process on failure.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.Result {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", bc.Type)
		os.Exit(1)
	}
	return res
}

// NewClassifier returns the Gemini classifier behind a result cache, or a
// disabled classifier when no API key is configured.
func NewClassifier(ctx context.Context, cfg *config.Config, logger *log.Logger) classify.Classifier {
	if cfg.GeminiAPIKey == "" {
		logger.Info("Automatic classification disabled, no GEMINI_API_KEY provided")
		return classify.Disabled{}
	}
	g, err := classify.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("Gemini unavailable, classification disabled", log.FieldError, err)
		return classify.Disabled{}
	}
	logger.Info("Automatic classification enabled", "model", cfg.GeminiModel)
	return classify.NewCached(g, cache.NewLRU[classify.Suggestion](500, 24*time.Hour))
}

// NewSheetsExporter connects to Google Sheets and wraps the client in a
// report exporter.
func NewSheetsExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (*sheets.Exporter, error) {
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("google sheets client: %w", err)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return sheets.NewExporter(client, report.NewFormatter(cfg.Currency), logger), nil
}

// NewReportExporter selects the closing-report exporter. A nil exporter
// means reports are not exported. The queue exporter needs client.
func NewReportExporter(ctx context.Context, cfg *config.Config, client *amqp.Client, logger *log.Logger) (report.Exporter, error) {
	switch cfg.ReportExporter {
	case "sheets":
		e, err := NewSheetsExporter(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "queue":
		if client == nil {
			return nil, fmt.Errorf("queue report exporter requires an AMQP connection")
		}
		return amqp.Exporter{Client: client}, nil
	default:
		return nil, nil
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
