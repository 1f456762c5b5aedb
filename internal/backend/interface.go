package backend

import (
	"context"
	"time"

	"github.com/nv-h/gmail-debit-client/internal/mail"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the mailbox and an optional cleanup function
type Result struct {
	Mailbox mail.Mailbox
	Cleanup CleanupFunc
}

// Factory creates mailboxes based on configuration
type Factory interface {
	// CreateMailbox creates a mailbox instance based on the provided config
	CreateMailbox(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for mailbox creation
type Config struct {
	Type BackendType

	// Gmail specific
	OAuthClientFile string
	OAuthClientJSON string
	OAuthTokenFile  string
	OAuthTokenJSON  string

	// Memory backend specific
	MailDirectory string
	Location      *time.Location
}

// BackendType represents the type of mailbox backend
type BackendType string

const (
	GmailBackend  BackendType = "gmail"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case GmailBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
