// Package aggregate computes read-time statistics over the donation ledger and
// wish-list aggregates. Every function is pure and recomputed per call.
package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// Totals is a count and a summed amount.
type Totals struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (t *Totals) add(amount decimal.Decimal) {
	t.Count++
	t.Amount = t.Amount.Add(amount)
}

// Windows are the calendar boundaries used by period totals.
type Windows struct {
	Today     time.Time
	ThisWeek  time.Time
	ThisMonth time.Time
}

// WindowsAt returns local midnight today, the most recent Sunday 00:00 and the
// first day of the month 00:00, all in loc.
func WindowsAt(now time.Time, loc *time.Location) Windows {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Windows{
		Today:     midnight,
		ThisWeek:  midnight.AddDate(0, 0, -int(local.Weekday())),
		ThisMonth: time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc),
	}
}

// PeriodTotals splits a ledger into today, this week, this month and all time.
type PeriodTotals struct {
	Today     Totals `json:"today"`
	ThisWeek  Totals `json:"this_week"`
	ThisMonth Totals `json:"this_month"`
	Total     Totals `json:"total"`
}

// ComputePeriodTotals sums every ledger row per window, whatever its status.
func ComputePeriodTotals(donations []domain.Donation, now time.Time, loc *time.Location) PeriodTotals {
	w := WindowsAt(now, loc)
	out := PeriodTotals{}
	for _, d := range donations {
		out.Total.add(d.Amount)
		if !d.CreatedAt.Before(w.ThisMonth) {
			out.ThisMonth.add(d.Amount)
		}
		if !d.CreatedAt.Before(w.ThisWeek) {
			out.ThisWeek.add(d.Amount)
		}
		if !d.CreatedAt.Before(w.Today) {
			out.Today.add(d.Amount)
		}
	}
	return out
}
