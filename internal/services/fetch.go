// Package services provides business logic and orchestration services.
//
// FetchService decides which months need remote data, pulls the matching
// notification mails, extracts records and hands them to the snapshot store.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nv-h/gmail-debit-client/internal/cache"
	"github.com/nv-h/gmail-debit-client/internal/core"
	"github.com/nv-h/gmail-debit-client/internal/coverage"
	"github.com/nv-h/gmail-debit-client/internal/extract"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/mail"
	"github.com/nv-h/gmail-debit-client/internal/snapshot"
)

// Ledger remembers which messages have already been ingested and the month
// each one was stored under.
type Ledger interface {
	Lookup(ctx context.Context, messageID string) (core.Period, bool, error)
	Record(ctx context.Context, snapshotID string, records []core.Transaction) error
}

// Publisher announces newly written records.
type Publisher interface {
	PublishRecordsFetched(ctx context.Context, snapshotID string, records []core.Transaction) error
}

// FetchConfig holds configuration for the fetch service
type FetchConfig struct {
	// SearchSubject is the subject term of every query (default: 口座振替)
	SearchSubject string

	// Floor is the first month with data; earlier months are never fetched
	Floor core.Period

	// WindowDays is the length of the trailing window in year mode (default: 365)
	WindowDays int

	// Location is the time zone that defines month boundaries
	Location *time.Location

	// Now is the clock (default: time.Now)
	Now func() time.Time
}

// DefaultFetchConfig returns sensible defaults
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		SearchSubject: "口座振替",
		Floor:         coverage.DefaultFloor,
		WindowDays:    365,
		Location:      time.Local,
		Now:           time.Now,
	}
}

// Result is what a run hands to the report.
type Result struct {
	// Cached holds rows that came from the snapshot.
	Cached []core.Transaction
	// New holds rows extracted during this run, zero amounts included.
	New []core.Transaction
	// Source is the snapshot the cached rows were read from.
	Source string
	// SnapshotID is the snapshot written by this run, "" when none was.
	SnapshotID string
	Yearly     bool
	// FromCache is set when the run made no remote calls.
	FromCache bool
	// Skipped counts messages that produced no record, by reason.
	Skipped map[extract.SkipReason]int
}

type FetchService struct {
	mailbox   mail.Mailbox
	extractor *extract.Extractor
	store     *snapshot.Store
	ledger    Ledger
	publisher Publisher
	config    FetchConfig
	logger    *applog.Logger
}

// NewFetchService wires a fetch service. ledger and publisher may be nil.
func NewFetchService(
	mailbox mail.Mailbox,
	extractor *extract.Extractor,
	store *snapshot.Store,
	ledger Ledger,
	publisher Publisher,
	config FetchConfig,
	logger *applog.Logger,
) *FetchService {
	d := DefaultFetchConfig()
	if config.SearchSubject == "" {
		config.SearchSubject = d.SearchSubject
	}
	if config.WindowDays <= 0 {
		config.WindowDays = d.WindowDays
	}
	if config.Location == nil {
		config.Location = d.Location
	}
	if config.Now == nil {
		config.Now = d.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &FetchService{
		mailbox:   mailbox,
		extractor: extractor,
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentFetch),
	}
}

// RunMonthly covers the current month. Cached rows for the month short-circuit
// the run; otherwise one query starting at the snapshot date (or the first day
// of the month) is issued and every record is assigned to the current month.
func (s *FetchService) RunMonthly(ctx context.Context) (*Result, error) {
	now := s.config.Now().In(s.config.Location)
	period := core.PeriodOf(now)

	snap := s.store.LoadLatest()
	cached := core.FilterPeriods(snap.Rows, map[core.Period]struct{}{period: {}})
	if len(cached) > 0 {
		s.logger.InfoContext(ctx, "using cached records for current month",
			applog.FieldMode, "monthly",
			applog.FieldPeriod, period,
			applog.FieldSnapshot, snap.ID,
			applog.FieldCount, len(cached))
		return &Result{Cached: cached, Source: snap.ID, FromCache: true}, nil
	}

	after, err := period.Start(s.config.Location)
	if err != nil {
		return nil, err
	}
	if snap.HasCachedAt() {
		after = snap.CachedAt
	}

	// The window overlaps the previous run's last day, and every hit is
	// assigned to the current month; the ledger keeps overlap mail from being
	// counted twice.
	run := s.newRun(s.ledger, core.PeriodSet(snap.Rows))
	query := mail.Query(after, time.Time{}, s.config.SearchSubject)
	if err := run.collect(ctx, query, period, false); err != nil {
		return nil, err
	}

	id, err := s.persist(ctx, snap.ID, run.records)
	if err != nil {
		return nil, err
	}
	return &Result{
		Cached:     cached,
		New:        run.records,
		Source:     snap.ID,
		SnapshotID: id,
		Skipped:    run.skipped,
	}, nil
}

// RunYearly covers the trailing window. Only months missing from the snapshot
// are queried, one bounded query per month; each record takes the month it
// was delivered in.
func (s *FetchService) RunYearly(ctx context.Context) (*Result, error) {
	now := s.config.Now().In(s.config.Location)
	start := now.AddDate(0, 0, -s.config.WindowDays)

	snap := s.store.LoadLatestForMonths(nil, true)
	missing := coverage.MissingMonths(core.PeriodSet(snap.Rows), start, now, s.config.Floor, s.logger)
	if len(missing) == 0 {
		s.logger.InfoContext(ctx, "all months in window are cached",
			applog.FieldMode, "yearly",
			applog.FieldSnapshot, snap.ID,
			applog.FieldCount, len(snap.Rows))
		return &Result{Cached: snap.Rows, Source: snap.ID, Yearly: true, FromCache: true}, nil
	}

	// Every planned month is absent from the snapshot, so nothing listed for
	// it can already be stored; the ledger is not consulted.
	run := s.newRun(nil, nil)
	for _, m := range missing {
		after, err := m.Start(s.config.Location)
		if err != nil {
			return nil, err
		}
		// before: is exclusive, so mail delivered on the month's last day is
		// not listed.
		before, err := m.LastDay(s.config.Location)
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "searching month", applog.FieldPeriod, m)
		if err := run.collect(ctx, mail.Query(after, before, s.config.SearchSubject), m, true); err != nil {
			return nil, err
		}
	}

	id, err := s.persist(ctx, snap.ID, run.records)
	if err != nil {
		return nil, err
	}
	return &Result{
		Cached:     snap.Rows,
		New:        run.records,
		Source:     snap.ID,
		SnapshotID: id,
		Yearly:     true,
		Skipped:    run.skipped,
	}, nil
}

// persist writes the snapshot and then, best effort, the ledger and the event.
func (s *FetchService) persist(ctx context.Context, oldID string, records []core.Transaction) (string, error) {
	id, err := s.store.Write(oldID, records)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	if id == "" {
		return "", nil
	}

	if s.ledger != nil {
		if err := s.ledger.Record(ctx, id, records); err != nil {
			s.logger.WarnContext(ctx, "failed to record ingested messages",
				applog.FieldSnapshot, id,
				applog.FieldError, err)
		}
	}
	if s.publisher != nil {
		kept, _ := core.FilterNonZero(records)
		if err := s.publisher.PublishRecordsFetched(ctx, id, kept); err != nil {
			s.logger.WarnContext(ctx, "failed to publish fetched records",
				applog.FieldSnapshot, id,
				applog.FieldError, err)
		}
	}
	return id, nil
}

// run is the state of one invocation.
type run struct {
	s       *FetchService
	ledger  Ledger
	stored  map[core.Period]struct{}
	seen    *cache.SeenSet
	records []core.Transaction
	skipped map[extract.SkipReason]int
}

// newRun starts a run. A ledger hit only skips a message while stored, the
// months present in the snapshot, still holds the month it was recorded
// under, so rows removed from the snapshot are fetched again.
func (s *FetchService) newRun(ledger Ledger, stored map[core.Period]struct{}) *run {
	return &run{
		s:       s,
		ledger:  ledger,
		stored:  stored,
		seen:    cache.NewSeenSet(0),
		skipped: map[extract.SkipReason]int{},
	}
}

// collect lists query and processes each hit in listing order. A listing
// failure aborts the run; anything that goes wrong with a single message only
// skips that message.
func (r *run) collect(ctx context.Context, query string, period core.Period, byDelivery bool) error {
	logger := r.s.logger
	handles, err := r.s.mailbox.List(ctx, query)
	if err != nil {
		return fmt.Errorf("search messages: %w", err)
	}
	logger.InfoContext(ctx, "found messages",
		applog.FieldOperation, applog.OpList,
		applog.FieldQuery, query,
		applog.FieldCount, len(handles))

	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := r.process(ctx, h.ID, period, byDelivery)
		if !out.OK() {
			r.skipped[out.Skip]++
			if out.Err != nil {
				logger.WarnContext(ctx, "skipping message",
					applog.FieldMessageID, h.ID,
					applog.FieldSkipReason, out.Skip,
					applog.FieldError, out.Err)
			} else {
				logger.DebugContext(ctx, "skipping message",
					applog.FieldMessageID, h.ID,
					applog.FieldSkipReason, out.Skip)
			}
			continue
		}
		r.records = append(r.records, out.Record)
	}
	logger.DebugContext(ctx, "processed listing",
		applog.FieldQuery, query,
		applog.FieldDistinct, r.seen.Len(),
		applog.FieldCount, len(r.records))
	return nil
}

func (r *run) process(ctx context.Context, id string, period core.Period, byDelivery bool) extract.Outcome {
	if r.seen.Mark(id) {
		return extract.Skipped(extract.SkipDuplicate, nil)
	}
	if r.ledger != nil && len(r.stored) > 0 {
		period, seen, err := r.ledger.Lookup(ctx, id)
		if err != nil {
			r.s.logger.WarnContext(ctx, "ledger lookup failed",
				applog.FieldMessageID, id,
				applog.FieldError, err)
		} else if _, ok := r.stored[period]; seen && ok {
			return extract.Skipped(extract.SkipAlreadyIngested, nil)
		}
	}

	msg, err := r.s.mailbox.Get(ctx, id)
	if err != nil {
		return extract.Skipped(extract.SkipFetchFailed, err)
	}
	return r.s.extractor.FromMessage(msg, period, byDelivery)
}
