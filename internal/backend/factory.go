package backend

import (
	"context"
	"fmt"
	"time"

	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/mail/gmail"
	"github.com/nv-h/gmail-debit-client/internal/mail/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new mailbox factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateMailbox implements Factory.CreateMailbox
func (f *DefaultFactory) CreateMailbox(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case GmailBackend:
		return f.createGmailMailbox(ctx, config)
	case MemoryBackend:
		return f.createMemoryMailbox(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createGmailMailbox(ctx context.Context, config Config) (*Result, error) {
	client, err := gmail.New(ctx, gmail.Credentials{
		ClientJSON: config.OAuthClientJSON,
		ClientFile: config.OAuthClientFile,
		TokenJSON:  config.OAuthTokenJSON,
		TokenFile:  config.OAuthTokenFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gmail client: %w", err)
	}

	f.logger.Info("Initialized Gmail mailbox")

	return &Result{
		Mailbox: client,
		Cleanup: nil, // No cleanup needed for gmail backend
	}, nil
}

func (f *DefaultFactory) createMemoryMailbox(config Config) (*Result, error) {
	dir := config.MailDirectory
	if dir == "" {
		dir = "mail" // Default directory
	}
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}

	box, err := memory.NewFromDir(dir, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to load mail directory: %w", err)
	}

	f.logger.Info("Initialized memory mailbox", applog.FieldPath, dir)

	return &Result{
		Mailbox: box,
		Cleanup: nil,
	}, nil
}
