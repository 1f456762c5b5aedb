// Package report prints fetched debits for a terminal.
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

type Options struct {
	SummaryOnly bool
	Yearly      bool
	// FromCache marks a run that made no remote calls.
	FromCache bool
	// Source is the snapshot the cached rows came from.
	Source string
}

// Render writes the report for one run. Zero-amount rows are dropped from
// cached and new independently before anything is printed or summed.
func Render(w io.Writer, cached, fresh []core.Transaction, opts Options) error {
	cached, _ = core.FilterNonZero(cached)
	fresh, _ = core.FilterNonZero(fresh)

	p := &printer{w: w}
	switch {
	case opts.SummaryOnly:
		total := core.Total(cached).Add(core.Total(fresh))
		p.line(core.FormatYen(total))
	case opts.FromCache:
		renderCached(p, cached, opts)
	case opts.Yearly && len(cached) > 0:
		renderMerged(p, cached, fresh)
	default:
		renderNew(p, fresh, opts.Yearly)
	}
	return p.err
}

func renderCached(p *printer, rows []core.Transaction, opts Options) {
	if len(rows) == 0 {
		notFound(p, opts.Yearly)
		return
	}
	p.linef("結果(%s)から取得:", opts.Source)
	total := core.Total(rows)
	if opts.Yearly {
		for _, g := range groupByPeriod(rows) {
			p.linef("\n%s (%s)", g.period, core.FormatYen(g.total))
			payeeLines(p, g.rows)
		}
		p.linef("\n過去1年分の口座振替合計：%s", core.FormatYen(total))
		return
	}
	flatLines(p, rows)
	p.linef("今月の口座振替合計：%s", core.FormatYen(total))
}

func renderMerged(p *printer, cached, fresh []core.Transaction) {
	all := append(append([]core.Transaction(nil), cached...), fresh...)
	fromCache := core.PeriodSet(cached)

	p.line("過去1年分の口座振替情報:")
	for _, g := range groupByPeriod(all) {
		status := "新規取得"
		if _, ok := fromCache[g.period]; ok {
			status = "キャッシュ"
		}
		p.linef("\n%s (%s) (%s)", g.period, core.FormatYen(g.total), status)
		payeeLines(p, g.rows)
	}
	p.linef("\n過去1年分の口座振替合計：%s", core.FormatYen(core.Total(all)))
	if len(fresh) > 0 {
		p.linef("新規取得分：%s", core.FormatYen(core.Total(fresh)))
	}
}

func renderNew(p *printer, rows []core.Transaction, yearly bool) {
	if len(rows) == 0 {
		notFound(p, yearly)
		return
	}
	total := core.Total(rows)
	if yearly {
		p.line("過去1年分の口座振替情報:")
		for _, g := range groupByPeriod(rows) {
			p.linef("\n%s (%s)", g.period, core.FormatYen(g.total))
			payeeLines(p, g.rows)
		}
		p.linef("\n過去1年分の口座振替合計：%s", core.FormatYen(total))
		return
	}
	p.line("新規取得した口座振替情報:")
	flatLines(p, rows)
	p.linef("今月の新規口座振替合計：%s", core.FormatYen(total))
}

func notFound(p *printer, yearly bool) {
	if yearly {
		p.line("過去1年分の口座振替情報は見つかりませんでした")
		return
	}
	p.line("新しい口座振替情報は見つかりませんでした")
}

func payeeLines(p *printer, rows []core.Transaction) {
	for _, r := range rows {
		p.linef("  %s %s", r.Payee, core.FormatYen(r.Amount))
	}
}

func flatLines(p *printer, rows []core.Transaction) {
	for _, r := range rows {
		p.linef("%s %s %s", r.Period, r.Payee, core.FormatYen(r.Amount))
	}
}

type group struct {
	period core.Period
	total  decimal.Decimal
	rows   []core.Transaction
}

// groupByPeriod groups rows by period in chronological order, keeping the
// input order inside each group.
func groupByPeriod(rows []core.Transaction) []group {
	byPeriod := map[core.Period]*group{}
	for _, r := range rows {
		g, ok := byPeriod[r.Period]
		if !ok {
			g = &group{period: r.Period, total: decimal.Zero}
			byPeriod[r.Period] = g
		}
		g.rows = append(g.rows, r)
		g.total = g.total.Add(r.Amount)
	}
	out := make([]group, 0, len(byPeriod))
	for _, period := range core.SortedPeriods(core.PeriodSet(rows)) {
		out = append(out, *byPeriod[period])
	}
	return out
}

// printer remembers the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err == nil {
		_, p.err = fmt.Fprintln(p.w, s)
	}
}

func (p *printer) linef(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}
