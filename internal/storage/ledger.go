// Package storage keeps a SQLite ledger of the mail messages that have already
// been turned into snapshot rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nv-h/gmail-debit-client/internal/core"
	applog "github.com/nv-h/gmail-debit-client/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteLedger struct {
	db     *sql.DB
	logger *applog.Logger
}

func NewSQLiteLedger(dbPath string, logger *applog.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(applog.ComponentLedger)
	logger.Debug("opened ledger", applog.FieldPath, dbPath, applog.FieldSchemaVersion, version)
	return &SQLiteLedger{db: db, logger: logger}, nil
}

func (l *SQLiteLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Lookup reports whether messageID has already been ingested and the period
// it was stored under.
func (l *SQLiteLedger) Lookup(ctx context.Context, messageID string) (core.Period, bool, error) {
	var period string
	err := l.db.QueryRowContext(ctx,
		`SELECT period FROM ingested_messages WHERE message_id = ?`, messageID).Scan(&period)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query ledger: %w", err)
	}
	return core.Period(period), true, nil
}

// Record stores the messages behind records as part of snapshotID. Records
// without a message id are ignored; an id already present takes the new
// record's values.
func (l *SQLiteLedger) Record(ctx context.Context, snapshotID string, records []core.Transaction) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ingested_messages (message_id, period, payee, amount, snapshot_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			period = excluded.period,
			payee = excluded.payee,
			amount = excluded.amount,
			snapshot_id = excluded.snapshot_id`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range records {
		if r.MessageID == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, r.MessageID, r.Period.String(), r.Payee, r.Amount.String(), snapshotID)
		if err != nil {
			return fmt.Errorf("insert ledger entry %s: %w", r.MessageID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}

	l.logger.InfoContext(ctx, "recorded ingested messages",
		applog.FieldOperation, applog.OpRecord,
		applog.FieldSnapshot, snapshotID,
		applog.FieldCount, written)
	return nil
}
