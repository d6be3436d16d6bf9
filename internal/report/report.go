// Package report aggregates sale records for display: date-range filtering,
// per-day totals and overall sums.
package report

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Totals sums the amounts of a set of records.
type Totals struct {
	Count      int             `json:"count"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
	Costs      decimal.Decimal `json:"costs"`
	Taxes      decimal.Decimal `json:"taxes"`
	Shipping   decimal.Decimal `json:"shipping"`
	Commission decimal.Decimal `json:"commission"`
}

func (t *Totals) add(r domain.SaleRecord) {
	t.Count++
	t.Gross = t.Gross.Add(r.GrossAmount)
	t.Net = t.Net.Add(r.NetAmount)
	t.Costs = t.Costs.Add(r.TotalCosts)
	t.Taxes = t.Taxes.Add(r.TaxesAmount)
	t.Shipping = t.Shipping.Add(r.ShippingAmount)
	t.Commission = t.Commission.Add(r.CommissionAmount)
}

// DailyTotal holds the totals of one calendar day.
type DailyTotal struct {
	Day civil.Date `json:"day"`
	Totals
}

// Summary is the overview of a set of records.
type Summary struct {
	From civil.Date `json:"from"`
	To   civil.Date `json:"to"`
	Totals
}

// FilterByDateRange keeps records whose calendar day lies within
// [from, to], both inclusive. Days are taken in each record's own location.
// The result is ordered newest first.
func FilterByDateRange(records []domain.SaleRecord, from, to civil.Date) []domain.SaleRecord {
	out := make([]domain.SaleRecord, 0, len(records))
	for _, r := range records {
		day := civil.DateOf(r.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// DailyTotals groups records by calendar day, oldest day first.
func DailyTotals(records []domain.SaleRecord) []DailyTotal {
	byDay := make(map[civil.Date]*DailyTotal)
	for _, r := range records {
		day := civil.DateOf(r.Date)
		dt, ok := byDay[day]
		if !ok {
			dt = &DailyTotal{Day: day}
			byDay[day] = dt
		}
		dt.add(r)
	}

	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out
}

// DefaultRange returns the span of days covered by records. When they all
// fall on one day the range starts one month earlier. ok is false for an
// empty input.
func DefaultRange(records []domain.SaleRecord) (from, to civil.Date, ok bool) {
	if len(records) == 0 {
		return civil.Date{}, civil.Date{}, false
	}

	from = civil.DateOf(records[0].Date)
	to = from
	for _, r := range records[1:] {
		day := civil.DateOf(r.Date)
		if day.Before(from) {
			from = day
		}
		if day.After(to) {
			to = day
		}
	}

	if from == to {
		from = civil.DateOf(from.In(time.UTC).AddDate(0, -1, 0))
	}
	return from, to, true
}

// Summarize totals records over their default range.
func Summarize(records []domain.SaleRecord) Summary {
	var s Summary
	s.From, s.To, _ = DefaultRange(records)
	for _, r := range records {
		s.add(r)
	}
	return s
}

// ParseDay parses a "2006-01-02" date.
func ParseDay(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}
