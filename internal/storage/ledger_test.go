package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "state", "ledger.db"), nil)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRecordAndLookup(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	_, seen, err := l.Lookup(ctx, "m1")
	if err != nil || seen {
		t.Fatalf("seen=%v err=%v", seen, err)
	}

	records := []core.Transaction{
		core.NewTransaction("2025-03", "A", core.NormalizeAmount("1000")).WithMessageID("m1"),
		core.NewTransaction("2025-03", "B", core.NormalizeAmount("200")),
		core.NewTransaction("2025-04", "C", core.NormalizeAmount("300")).WithMessageID("m2"),
	}
	if err := l.Record(ctx, "result_debit_2025-04-01.csv", records); err != nil {
		t.Fatalf("record: %v", err)
	}

	tests := []struct {
		id     string
		period core.Period
		seen   bool
	}{
		{"m1", "2025-03", true},
		{"m2", "2025-04", true},
		{"", "", false},
		{"m3", "", false},
	}
	for _, tt := range tests {
		period, seen, err := l.Lookup(ctx, tt.id)
		if err != nil {
			t.Fatalf("%q: %v", tt.id, err)
		}
		if seen != tt.seen || period != tt.period {
			t.Fatalf("%q: period=%q seen=%v, want %q %v", tt.id, period, seen, tt.period, tt.seen)
		}
	}
}

func TestLedgerRecordReplacesPeriod(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	first := core.NewTransaction("2025-02", "A", core.NormalizeAmount("1000")).WithMessageID("m1")
	if err := l.Record(ctx, "result_debit_2025-03-01.csv", []core.Transaction{first}); err != nil {
		t.Fatal(err)
	}
	again := core.NewTransaction("2025-03", "A", core.NormalizeAmount("1000")).WithMessageID("m1")
	if err := l.Record(ctx, "result_debit_2025-03-02.csv", []core.Transaction{again}); err != nil {
		t.Fatalf("record again: %v", err)
	}

	period, seen, err := l.Lookup(ctx, "m1")
	if err != nil || !seen || period != "2025-03" {
		t.Fatalf("period=%q seen=%v err=%v", period, seen, err)
	}
}

func TestLedgerReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := NewSQLiteLedger(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := core.NewTransaction("2025-03", "A", core.NormalizeAmount("1")).WithMessageID("keep")
	if err := l.Record(ctx, "snap", []core.Transaction{tx}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = NewSQLiteLedger(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	if period, seen, err := l.Lookup(ctx, "keep"); err != nil || !seen || period != "2025-03" {
		t.Fatalf("period=%q seen=%v err=%v", period, seen, err)
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("run %d: version = %d", i, version)
		}
	}
}
