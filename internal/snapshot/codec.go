package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nv-h/gmail-debit-client/internal/core"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
)

const cachedAtPrefix = "# cached_at:"

var (
	header = []string{"period", "payee", "amount"}
	// Snapshots written by earlier releases used Japanese column names.
	legacyHeader = []string{"年月", "振替先", "金額"}
)

var errMissingColumn = errors.New("missing column")

func encode(w io.Writer, cachedAt time.Time, rows []core.Transaction) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s %s\n", cachedAtPrefix, cachedAt.Format(dateLayout)); err != nil {
		return err
	}
	cw := csv.NewWriter(bw)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Period.String(), r.Payee, r.Amount.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// decode parses a snapshot. The cached_at line is optional; an unparseable
// date is logged and returned as the zero time.
func decode(r io.Reader, loc *time.Location, logger *applog.Logger) (time.Time, []core.Transaction, error) {
	br := bufio.NewReader(r)

	var cachedAt time.Time
	first, err := br.Peek(len(cachedAtPrefix))
	if err == nil && string(first) == cachedAtPrefix {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return time.Time{}, nil, fmt.Errorf("read cached_at: %w", err)
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, cachedAtPrefix))
		if t, perr := time.ParseInLocation(dateLayout, value, loc); perr == nil {
			cachedAt = t
		} else {
			logger.Warn("ignoring unparseable cached_at", applog.FieldCachedAt, value)
		}
	}

	// Rows are parsed one line at a time so a stray quote in an edited file
	// spoils only its own line.
	var (
		cols     [3]int
		haveHead bool
		rows     []core.Transaction
		skipped  int
	)
	sc := bufio.NewScanner(br)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(line)
		if !haveHead {
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("read header: %w", err)
			}
			if cols, err = columns(rec); err != nil {
				return time.Time{}, nil, err
			}
			haveHead = true
			continue
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("read row: %w", err)
		}
		tx, ok := toRow(rec, cols)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, tx)
	}
	if err := sc.Err(); err != nil {
		return time.Time{}, nil, fmt.Errorf("read rows: %w", err)
	}
	if skipped > 0 {
		logger.Warn("skipped malformed snapshot rows", applog.FieldCount, skipped)
	}
	return cachedAt, rows, nil
}

func parseLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.Read()
}

func toRow(rec []string, cols [3]int) (core.Transaction, bool) {
	for _, c := range cols {
		if c >= len(rec) {
			return core.Transaction{}, false
		}
	}
	tx := core.NewTransaction(core.Period(strings.TrimSpace(rec[cols[0]])), rec[cols[1]], core.NormalizeAmount(rec[cols[2]]))
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, false
	}
	return tx, true
}

// columns maps period, payee and amount to their indexes in head.
func columns(head []string) ([3]int, error) {
	idx := make(map[string]int, len(head))
	for i, h := range head {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var out [3]int
	for _, names := range [][]string{header, legacyHeader} {
		ok := true
		for i, name := range names {
			j, found := idx[name]
			if !found {
				ok = false
				break
			}
			out[i] = j
		}
		if ok {
			return out, nil
		}
	}
	return out, fmt.Errorf("%w: want %s", errMissingColumn, strings.Join(header, ","))
}
