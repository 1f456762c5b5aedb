// Package mail defines the remote mailbox capability the fetcher depends on.
package mail

import (
	"context"
	"strings"
	"time"
)

type (
	// Handle is an opaque reference returned by a listing.
	Handle struct {
		ID string
	}

	Header struct {
		Name  string
		Value string
	}

	// Part is one leaf of a message body. Data holds raw, transfer-decoded bytes
	// in whatever charset the sender used.
	Part struct {
		MimeType string
		Data     []byte
	}

	Message struct {
		ID          string
		Headers     []Header
		Parts       []Part
		DeliveredAt time.Time
		Snippet     string
	}
)

// Ports for outbound adapters.
type (
	// Lister runs a search query and returns matching handles in the order the
	// remote returned them.
	Lister interface {
		List(ctx context.Context, query string) ([]Handle, error)
	}

	// Getter retrieves one message.
	Getter interface {
		Get(ctx context.Context, id string) (*Message, error)
	}

	Mailbox interface {
		Lister
		Getter
	}
)

// HeaderValues returns every value of the named header, case-insensitively.
func (m *Message) HeaderValues(name string) []string {
	var out []string
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			out = append(out, h.Value)
		}
	}
	return out
}
