// Package gmail adapts the Gmail API to the mail ports.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	gmailapi "google.golang.org/api/gmail/v1"

	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/mail"
)

const userID = "me"

type Client struct {
	svc    *gmailapi.Service
	logger *applog.Logger
}

// Ensure interface conformance
var _ mail.Mailbox = (*Client)(nil)

// New authorizes with creds and builds the Gmail service.
func New(ctx context.Context, creds Credentials, logger *applog.Logger) (*Client, error) {
	ts, err := creds.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewWithService(svc, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gmailapi.Service, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{svc: svc, logger: logger.WithComponent(applog.ComponentGmail)}
}

// List follows every result page.
func (c *Client) List(ctx context.Context, query string) ([]mail.Handle, error) {
	var out []mail.Handle
	pages := 0
	err := c.svc.Users.Messages.List(userID).Q(query).Pages(ctx, func(resp *gmailapi.ListMessagesResponse) error {
		pages++
		for _, m := range resp.Messages {
			out = append(out, mail.Handle{ID: m.Id})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	c.logger.DebugContext(ctx, "listed messages",
		applog.FieldOperation, applog.OpList,
		applog.FieldQuery, query,
		applog.FieldCount, len(out),
		applog.FieldPages, pages)
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*mail.Message, error) {
	m, err := c.svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return convert(m), nil
}

func convert(m *gmailapi.Message) *mail.Message {
	msg := &mail.Message{
		ID:      m.Id,
		Snippet: m.Snippet,
	}
	if m.InternalDate > 0 {
		msg.DeliveredAt = time.UnixMilli(m.InternalDate)
	}
	if m.Payload == nil {
		return msg
	}
	for _, h := range m.Payload.Headers {
		msg.Headers = append(msg.Headers, mail.Header{Name: h.Name, Value: h.Value})
	}
	msg.Parts = flatten(m.Payload, nil)
	return msg
}

// flatten collects leaf parts depth first. Attachments stored out of line are
// skipped.
func flatten(p *gmailapi.MessagePart, out []mail.Part) []mail.Part {
	if len(p.Parts) > 0 {
		for _, child := range p.Parts {
			out = flatten(child, out)
		}
		return out
	}
	if p.Body == nil || p.Body.Data == "" {
		return out
	}
	data, err := decodeBody(p.Body.Data)
	if err != nil {
		return out
	}
	return append(out, mail.Part{MimeType: p.MimeType, Data: data})
}

func decodeBody(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
