// Package snapshot persists debit records as dated CSV files in a cache
// directory. Exactly one snapshot is current at a time.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nv-h/gmail-debit-client/internal/core"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
)

const (
	DefaultPrefix = "result_debit_"
	dateLayout    = "2006-01-02"
	fileSuffix    = ".csv"
)

// Snapshot is the parsed content of one snapshot file. A Snapshot without rows
// means there was nothing usable on disk.
type Snapshot struct {
	ID       string
	CachedAt time.Time
	Rows     []core.Transaction
}

// HasCachedAt reports whether the snapshot carried a valid cached_at date.
func (s Snapshot) HasCachedAt() bool {
	return !s.CachedAt.IsZero()
}

type Option func(*Store)

// WithClock overrides the clock used to date new snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func WithLogger(logger *applog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is the only reader and writer of the cache directory.
type Store struct {
	dir     string
	prefix  string
	now     func() time.Time
	loc     *time.Location
	logger  *applog.Logger
	current string
}

// Open creates dir if needed and selects the lexicographically greatest
// snapshot name as current.
func Open(dir, prefix string, opts ...Option) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Store{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
		loc:    time.Local,
		logger: applog.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(applog.ComponentSnapshot)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	names, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("scan cache dir: %w", err)
	}
	if len(names) > 0 {
		s.current = names[len(names)-1]
	}
	return s, nil
}

// Current returns the id of the current snapshot, or "" when there is none.
func (s *Store) Current() string {
	return s.current
}

// Path returns the file path of a snapshot id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id)
}

// LoadLatest reads the current snapshot. A missing file yields an empty
// Snapshot. An unreadable one yields no rows but keeps its ID, so a later
// Write against it fails instead of replacing the file; the error is only
// logged here.
func (s *Store) LoadLatest() Snapshot {
	if s.current == "" {
		return Snapshot{}
	}
	snap, err := s.read(s.current)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("current snapshot disappeared",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldSnapshot, s.current)
		return Snapshot{}
	}
	if err != nil {
		s.logger.Warn("ignoring unreadable snapshot",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldSnapshot, s.current,
			applog.FieldError, err)
		return Snapshot{ID: s.current}
	}
	s.logger.Info("loaded snapshot",
		applog.FieldSnapshot, snap.ID,
		applog.FieldCount, len(snap.Rows))
	return snap
}

// LoadLatestForMonths is LoadLatest with rows restricted to months, unless all
// is set.
func (s *Store) LoadLatestForMonths(months map[core.Period]struct{}, all bool) Snapshot {
	snap := s.LoadLatest()
	if !all {
		snap.Rows = core.FilterPeriods(snap.Rows, months)
	}
	return snap
}

// Write replaces the snapshot oldID with a new one holding the old rows plus
// newRows, zero amounts removed. It returns "" without touching the disk when
// newRows is empty. Other snapshots are removed afterwards on a best-effort
// basis.
func (s *Store) Write(oldID string, newRows []core.Transaction) (string, error) {
	if len(newRows) == 0 {
		return "", nil
	}

	var oldRows []core.Transaction
	if oldID != "" {
		old, err := s.read(oldID)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return "", fmt.Errorf("read snapshot %s: %w", oldID, err)
		default:
			oldRows = old.Rows
		}
	}

	keptOld, droppedOld := core.FilterNonZero(oldRows)
	keptNew, droppedNew := core.FilterNonZero(newRows)
	if droppedOld > 0 || droppedNew > 0 {
		s.logger.Info("dropped zero-amount rows",
			applog.FieldCachedDropped, droppedOld,
			applog.FieldNewDropped, droppedNew)
	}

	today := s.now().In(s.loc)
	id := s.prefix + today.Format(dateLayout) + fileSuffix
	all := make([]core.Transaction, 0, len(keptOld)+len(keptNew))
	all = append(all, keptOld...)
	all = append(all, keptNew...)

	if err := s.writeAtomic(id, today, all); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", id, err)
	}
	s.current = id
	s.logger.Info("wrote snapshot",
		applog.FieldOperation, applog.OpWrite,
		applog.FieldSnapshot, id,
		applog.FieldCount, len(all))

	s.removeStale(id)
	return id, nil
}

func (s *Store) writeAtomic(id string, cachedAt time.Time, rows []core.Transaction) error {
	tmp, err := os.CreateTemp(s.dir, s.prefix+"*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, cachedAt, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path(id))
}

func (s *Store) removeStale(keep string) {
	names, err := s.list()
	if err != nil {
		s.logger.Warn("could not scan for stale snapshots", applog.FieldError, err)
		return
	}
	for _, name := range names {
		if name == keep {
			continue
		}
		if err := os.Remove(s.Path(name)); err != nil {
			s.logger.Warn("failed to remove stale snapshot",
				applog.FieldOperation, applog.OpDelete,
				applog.FieldSnapshot, name,
				applog.FieldError, err)
			continue
		}
		s.logger.Debug("removed stale snapshot", applog.FieldSnapshot, name)
	}
}

func (s *Store) read(id string) (Snapshot, error) {
	f, err := os.Open(s.Path(id))
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	cachedAt, rows, err := decode(f, s.loc, s.logger)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: id, CachedAt: cachedAt, Rows: rows}, nil
}

// list returns matching snapshot names in ascending order.
func (s *Store) list() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, s.prefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
