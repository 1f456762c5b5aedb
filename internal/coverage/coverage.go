// Package coverage decides which months of a reporting window still need to be
// fetched.
package coverage

import (
	"time"

	"github.com/nv-h/gmail-debit-client/internal/core"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
)

// DefaultFloor is the first month for which mail data is available.
const DefaultFloor core.Period = "2025-01"

// Plan is the month-by-month breakdown of a window.
type Plan struct {
	// InRange lists every month of the window, floor included, in order.
	InRange []core.Period
	// Excluded lists months before the floor.
	Excluded []core.Period
	// Cached lists in-range months that already have data.
	Cached []core.Period
	// Missing lists in-range months without data.
	Missing []core.Period
}

// Months returns every month from start's month to end's month inclusive.
// An end before start yields nothing.
func Months(start, end time.Time) []core.Period {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []core.Period
	for !cur.After(last) {
		out = append(out, core.PeriodOf(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// Compute classifies every month of [start, end] against cached and floor.
// An empty floor disables the floor.
func Compute(cached map[core.Period]struct{}, start, end time.Time, floor core.Period) Plan {
	var p Plan
	for _, m := range Months(start, end) {
		if floor != "" && m.Before(floor) {
			p.Excluded = append(p.Excluded, m)
			continue
		}
		p.InRange = append(p.InRange, m)
		if _, ok := cached[m]; ok {
			p.Cached = append(p.Cached, m)
		} else {
			p.Missing = append(p.Missing, m)
		}
	}
	return p
}

// MissingMonths returns the months of the window that must be fetched and logs
// the floor exclusions as a single warning.
func MissingMonths(cached map[core.Period]struct{}, start, end time.Time, floor core.Period, logger *applog.Logger) []core.Period {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentCoverage)

	p := Compute(cached, start, end, floor)
	if len(p.Excluded) > 0 {
		logger.Warn("skipping months before data floor",
			applog.FieldPeriods, p.Excluded,
			applog.FieldFloor, floor)
	}
	logger.Info("planned coverage",
		applog.FieldOperation, applog.OpPlan,
		applog.FieldInRange, len(p.InRange),
		applog.FieldCached, len(p.Cached),
		applog.FieldMissing, len(p.Missing))
	return p.Missing
}
