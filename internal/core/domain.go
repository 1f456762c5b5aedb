package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownPayee is stored when the payee label cannot be found in a message.
const UnknownPayee = "[不明]"

const periodLayout = "2006-01"

type (
	// Period is a calendar month in "YYYY-MM" form. For well-formed values the
	// string order is the chronological order.
	Period string

	// Transaction is one account debit. Values are copied, never mutated.
	Transaction struct {
		Period Period
		Payee  string
		Amount decimal.Decimal
		// MessageID identifies the mail the record came from. It is kept in
		// memory only and never written to snapshots.
		MessageID string
	}
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrEmptyPayee    = errors.New("empty payee")
)

// NewTransaction builds a record, normalizing a negative amount to zero and an
// empty payee to UnknownPayee.
func NewTransaction(period Period, payee string, amount decimal.Decimal) Transaction {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	payee = strings.TrimSpace(payee)
	if payee == "" {
		payee = UnknownPayee
	}
	return Transaction{Period: period, Payee: payee, Amount: amount}
}

// WithMessageID returns a copy of t tagged with the originating message.
func (t Transaction) WithMessageID(id string) Transaction {
	t.MessageID = id
	return t
}

// IsNoise reports whether the record carries no amount and must be dropped
// from totals and persisted output.
func (t Transaction) IsNoise() bool {
	return !t.Amount.IsPositive()
}

func (t Transaction) Validate() error {
	if err := t.Period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Payee) == "" {
		return ErrEmptyPayee
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// PeriodOf returns the month containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period(t.Format(periodLayout))
}

// ParsePeriod validates s as "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(periodLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period(s), nil
}

func (p Period) String() string { return string(p) }

func (p Period) Validate() error {
	_, err := ParsePeriod(string(p))
	return err
}

// Start returns the first instant of the month in loc.
func (p Period) Start(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(periodLayout, string(p), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	return t, nil
}

// LastDay returns the last calendar day of the month in loc.
func (p Period) LastDay(loc *time.Location) (time.Time, error) {
	start, err := p.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 1, -1), nil
}

// Before reports whether p sorts strictly before other.
func (p Period) Before(other Period) bool {
	return string(p) < string(other)
}

// PeriodSet returns the distinct periods present in rows.
func PeriodSet(rows []Transaction) map[Period]struct{} {
	set := make(map[Period]struct{}, len(rows))
	for _, r := range rows {
		set[r.Period] = struct{}{}
	}
	return set
}

// SortedPeriods returns the keys of set in chronological order.
func SortedPeriods(set map[Period]struct{}) []Period {
	out := make([]Period, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FilterNonZero returns the rows with a positive amount and the number of rows
// that were dropped. The input slice is not modified.
func FilterNonZero(rows []Transaction) ([]Transaction, int) {
	kept := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		if r.IsNoise() {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(rows) - len(kept)
}

// FilterPeriods keeps rows whose period is in months.
func FilterPeriods(rows []Transaction, months map[Period]struct{}) []Transaction {
	var out []Transaction
	for _, r := range rows {
		if _, ok := months[r.Period]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Total sums the amounts of rows.
func Total(rows []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum
}
