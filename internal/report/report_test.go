package report

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sale(id string, date time.Time, gross string) domain.SaleRecord {
	return domain.SaleRecord{
		OperationID:      id,
		Date:             date,
		GrossAmount:      decimal.RequireFromString(gross),
		NetAmount:        decimal.RequireFromString(gross),
		CommissionAmount: decimal.Zero,
	}
}

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestFilterByDateRange(t *testing.T) {
	records := []domain.SaleRecord{
		sale("a", at(2024, 1, 1, 0), "1"),
		sale("b", at(2024, 1, 2, 23), "2"),
		sale("c", at(2024, 1, 2, 1), "3"),
		sale("d", at(2024, 1, 3, 12), "4"),
		sale("e", at(2024, 1, 4, 0), "5"),
	}

	got := FilterByDateRange(records, day(2024, 1, 2), day(2024, 1, 3))

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.OperationID
	}
	assert.Equal(t, []string{"d", "b", "c"}, ids, "inclusive by day, newest first")

	assert.Empty(t, FilterByDateRange(records, day(2024, 2, 1), day(2024, 2, 28)))
	assert.Len(t, FilterByDateRange(records, day(2024, 1, 1), day(2024, 1, 1)), 1)
}

func TestDailyTotals(t *testing.T) {
	records := []domain.SaleRecord{
		sale("a", at(2024, 1, 3, 10), "100.50"),
		sale("b", at(2024, 1, 1, 10), "10"),
		sale("c", at(2024, 1, 3, 22), "0.50"),
	}

	got := DailyTotals(records)
	require.Len(t, got, 2)

	assert.Equal(t, day(2024, 1, 1), got[0].Day)
	assert.Equal(t, 1, got[0].Count)
	assert.True(t, decimal.RequireFromString("10").Equal(got[0].Gross))

	assert.Equal(t, day(2024, 1, 3), got[1].Day)
	assert.Equal(t, 2, got[1].Count)
	assert.True(t, decimal.RequireFromString("101").Equal(got[1].Gross))

	assert.Empty(t, DailyTotals(nil))
}

func TestDefaultRange(t *testing.T) {
	_, _, ok := DefaultRange(nil)
	assert.False(t, ok)

	from, to, ok := DefaultRange([]domain.SaleRecord{
		sale("a", at(2024, 3, 5, 1), "1"),
		sale("b", at(2024, 1, 20, 1), "1"),
		sale("c", at(2024, 2, 1, 1), "1"),
	})
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 20), from)
	assert.Equal(t, day(2024, 3, 5), to)

	from, to, ok = DefaultRange([]domain.SaleRecord{
		sale("a", at(2024, 3, 5, 1), "1"),
		sale("b", at(2024, 3, 5, 20), "1"),
	})
	require.True(t, ok)
	assert.Equal(t, day(2024, 2, 5), from, "single day widens one month back")
	assert.Equal(t, day(2024, 3, 5), to)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]domain.SaleRecord{
		sale("a", at(2024, 1, 1, 1), "1.25"),
		sale("b", at(2024, 1, 5, 1), "2.75"),
	})

	assert.Equal(t, 2, s.Count)
	assert.True(t, decimal.RequireFromString("4").Equal(s.Gross))
	assert.Equal(t, day(2024, 1, 1), s.From)
	assert.Equal(t, day(2024, 1, 5), s.To)
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 29), d)

	_, err = ParseDay("29/02/2024")
	assert.Error(t, err)
}
