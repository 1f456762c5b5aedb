// Package memory is an in-process mailbox used for tests and offline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nv-h/gmail-debit-client/internal/mail"
)

type Mailbox struct {
	mu       sync.Mutex
	loc      *time.Location
	messages []*mail.Message
	// Counters let tests assert how many remote calls a run made.
	lists int
	gets  int
	// failGet makes Get return an error for the listed ids.
	failGet map[string]error
}

var _ mail.Mailbox = (*Mailbox)(nil)

// New returns a mailbox whose query dates are interpreted in loc.
func New(loc *time.Location, msgs ...*mail.Message) *Mailbox {
	if loc == nil {
		loc = time.Local
	}
	m := &Mailbox{loc: loc, failGet: map[string]error{}}
	for _, msg := range msgs {
		m.Add(msg)
	}
	return m
}

// Add stores msg. Messages are listed newest first, like the remote service.
func (m *Mailbox) Add(msg *mail.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	sort.SliceStable(m.messages, func(i, j int) bool {
		return m.messages[i].DeliveredAt.After(m.messages[j].DeliveredAt)
	})
}

// FailGet makes subsequent Get calls for id return err.
func (m *Mailbox) FailGet(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet[id] = err
}

// Calls returns the number of List and Get calls served so far.
func (m *Mailbox) Calls() (lists, gets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, m.gets
}

func (m *Mailbox) List(_ context.Context, query string) ([]mail.Handle, error) {
	q, err := parseQuery(query, m.loc)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++

	var out []mail.Handle
	for _, msg := range m.messages {
		if q.matches(msg) {
			out = append(out, mail.Handle{ID: msg.ID})
		}
	}
	return out, nil
}

func (m *Mailbox) Get(_ context.Context, id string) (*mail.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	if err, ok := m.failGet[id]; ok {
		return nil, err
	}
	for _, msg := range m.messages {
		if msg.ID == id {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("message %s: not found", id)
}

// query is the subset of the remote search grammar the fetcher emits.
type query struct {
	after   time.Time
	before  time.Time
	subject string
}

func parseQuery(s string, loc *time.Location) (query, error) {
	var q query
	rest := strings.TrimSpace(s)
	for rest != "" {
		var token string
		if i := strings.Index(rest, "subject:("); i == 0 {
			end := strings.Index(rest, ")")
			if end < 0 {
				return q, fmt.Errorf("parse query %q: unterminated subject", s)
			}
			q.subject = strings.ToLower(rest[len("subject:("):end])
			rest = strings.TrimSpace(rest[end+1:])
			continue
		}
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			token, rest = rest[:i], strings.TrimSpace(rest[i+1:])
		} else {
			token, rest = rest, ""
		}

		key, value, ok := strings.Cut(token, ":")
		if !ok {
			return q, fmt.Errorf("parse query %q: unexpected term %q", s, token)
		}
		switch key {
		case "after", "before":
			t, err := time.ParseInLocation("2006/01/02", value, loc)
			if err != nil {
				return q, fmt.Errorf("parse query %q: %w", s, err)
			}
			if key == "after" {
				q.after = t
			} else {
				q.before = t
			}
		case "subject":
			q.subject = strings.ToLower(value)
		default:
			return q, fmt.Errorf("parse query %q: unsupported operator %q", s, key)
		}
	}
	return q, nil
}

func (q query) matches(msg *mail.Message) bool {
	if !q.after.IsZero() && msg.DeliveredAt.Before(q.after) {
		return false
	}
	if !q.before.IsZero() && !msg.DeliveredAt.Before(q.before) {
		return false
	}
	if q.subject == "" {
		return true
	}
	for _, v := range msg.HeaderValues("Subject") {
		if strings.Contains(strings.ToLower(v), q.subject) {
			return true
		}
	}
	return false
}
