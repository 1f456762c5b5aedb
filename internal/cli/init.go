// Package cli provides common CLI initialization utilities shared by
// cmd/debits and cmd/oauth-init.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nv-h/gmail-debit-client/internal/amqp"
	"github.com/nv-h/gmail-debit-client/internal/config"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/services"
	"github.com/nv-h/gmail-debit-client/internal/storage"
)

// SetupLogger initializes structured logging on stderr at the given level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLedger opens the ingestion ledger when enabled. A failure is logged and
// the run continues without one. The returned interface is nil, never a typed
// nil pointer, when there is no ledger.
func InitLedger(logger *applog.Logger, cfg *config.Config) (services.Ledger, func()) {
	if !cfg.LedgerEnabled() {
		return nil, func() {}
	}
	ledger, err := storage.NewSQLiteLedger(cfg.LedgerPath, logger)
	if err != nil {
		logger.Warn("Failed to open ledger, continuing without it", applog.FieldError, err, applog.FieldPath, cfg.LedgerPath)
		return nil, func() {}
	}
	return ledger, func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("Failed to close ledger", applog.FieldError, err)
		}
	}
}

// InitPublisher connects to AMQP when a URL is configured. Like InitLedger it
// degrades to no publisher on failure.
func InitPublisher(logger *applog.Logger, cfg *config.Config) (services.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without publishing", applog.FieldError, err)
		return nil, func() {}
	}
	logger.Info("Initialized AMQP client", applog.FieldExchange, cfg.AMQPExchange, applog.FieldQueue, cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
