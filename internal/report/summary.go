package report

import (
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

// Bucket is a total and record count for one key.
type Bucket struct {
	Key   string
	Total decimal.Decimal
	Count int
}

// Summary aggregates a snapshot for the analyze view.
type Summary struct {
	Total      decimal.Decimal
	Count      int
	MonthCount int
	PayeeCount int
	// First and Last are empty when there are no rows.
	First, Last core.Period
	// Months is in chronological order.
	Months []Bucket
	// Payees is sorted by total, largest first.
	Payees []Bucket
}

// Summarize aggregates rows after dropping zero amounts.
func Summarize(rows []core.Transaction) Summary {
	rows, _ = core.FilterNonZero(rows)
	s := Summary{Total: core.Total(rows), Count: len(rows)}
	if len(rows) == 0 {
		return s
	}

	for _, g := range groupByPeriod(rows) {
		s.Months = append(s.Months, Bucket{Key: g.period.String(), Total: g.total, Count: len(g.rows)})
	}
	s.MonthCount = len(s.Months)
	s.First = core.Period(s.Months[0].Key)
	s.Last = core.Period(s.Months[len(s.Months)-1].Key)

	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.Payee]
		if !ok {
			i = len(s.Payees)
			index[r.Payee] = i
			s.Payees = append(s.Payees, Bucket{Key: r.Payee, Total: decimal.Zero})
		}
		s.Payees[i].Total = s.Payees[i].Total.Add(r.Amount)
		s.Payees[i].Count++
	}
	sort.SliceStable(s.Payees, func(i, j int) bool {
		return s.Payees[i].Total.GreaterThan(s.Payees[j].Total)
	})
	s.PayeeCount = len(s.Payees)
	return s
}

// RenderSummary writes the analyze view of s read from source.
func RenderSummary(w io.Writer, s Summary, source string, summaryOnly bool) error {
	p := &printer{w: w}
	if summaryOnly {
		p.line(core.FormatYen(s.Total))
		return p.err
	}

	dateRange := "-"
	if s.Count > 0 {
		dateRange = s.First.String() + " ~ " + s.Last.String()
	}
	p.line("=== 口座振替データ サマリ ===")
	p.linef("データソース: %s", source)
	p.linef("期間: %s", dateRange)
	p.linef("総振替金額: %s", core.FormatYen(s.Total))
	p.linef("振替件数: %d件", s.Count)
	p.linef("対象月数: %dヶ月", s.MonthCount)
	p.linef("振替先数: %d社", s.PayeeCount)

	p.line("\n=== 月別サマリ ===")
	for _, b := range s.Months {
		p.linef("%s: %s (%d件)", b.Key, core.FormatYen(b.Total), b.Count)
	}

	p.line("\n=== 振替先別サマリ ===")
	for _, b := range s.Payees {
		p.linef("%s: %s (%d件)", b.Key, core.FormatYen(b.Total), b.Count)
	}
	return p.err
}
