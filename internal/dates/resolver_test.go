package dates

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dvloznov/settlement-tracker/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return &Resolver{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

func TestParseText(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name string
		text string
		year int
		want time.Time
	}{
		{"spanish with hs", "9 feb 20:59 hs", 2024, time.Date(2024, 2, 9, 20, 59, 0, 0, time.UTC)},
		{"hard spaces", "9\u00a0feb 20:59\u00a0hs", 2024, time.Date(2024, 2, 9, 20, 59, 0, 0, time.UTC)},
		{"tab between day and month", "9\tfeb 20:59", 2024, time.Date(2024, 2, 9, 20, 59, 0, 0, time.UTC)},
		{"english month", "03 aug 08:05", 2023, time.Date(2023, 8, 3, 8, 5, 0, 0, time.UTC)},
		{"upper case and punctuation", "15 DIC. 2023, 13:45 hs.", 2023, time.Date(2023, 12, 15, 13, 45, 0, 0, time.UTC)},
		{"four letter month", "1 sept 00:00", 2022, time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"set is september", "2 set 11:11", 2022, time.Date(2022, 9, 2, 11, 11, 0, 0, time.UTC)},
		{"unknown month is january", "5 xyz 10:00", 2024, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)},
		{"day name in between", "7 abr lunes 09:30", 2024, time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC)},
		{"impossible day", "31 feb 10:00", 2024, time.Time{}},
		{"day zero", "0 mar 10:00", 2024, time.Time{}},
		{"leap day", "29 feb 10:00", 2024, time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)},
		{"no time", "9 feb", 2024, time.Time{}},
		{"garbage", "garbage", 2024, time.Time{}},
		{"empty", "", 2024, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ParseText(tt.text, tt.year)
			assert.True(t, tt.want.Equal(got), "ParseText(%q) = %v, want %v", tt.text, got, tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	r := newTestResolver()
	stored := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		cell   sheet.Cell
		year   int
		want   time.Time
		wantOK bool
	}{
		{"text cell", sheet.TextCell("9 feb 20:59 hs"), 2024, time.Date(2024, 2, 9, 20, 59, 0, 0, time.UTC), true},
		{"date cell ignores year", sheet.DateCell(stored), 2019, stored, true},
		{"unparseable falls back to now", sheet.TextCell("garbage"), 2024, fixedNow, false},
		{"empty cell falls back to now", sheet.Cell{}, 2024, fixedNow, false},
		{"old date cell falls back to now", sheet.DateCell(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)), 2024, fixedNow, false},
		{"old context year falls back to now", sheet.TextCell("9 feb 20:59"), 1998, fixedNow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ResolveWithStatus(tt.cell, tt.year)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			assert.True(t, tt.want.Equal(r.Resolve(tt.cell, tt.year)))
		})
	}
}

func TestResolve_NeverBefore2000(t *testing.T) {
	r := newTestResolver()
	inputs := []string{"", "1 ene 00:00", "31 dic 23:59", "99 abc 99:99", "nonsense"}
	for _, in := range inputs {
		for _, year := range []int{0, 1, 1999, 2000, 2024} {
			got := r.Resolve(sheet.TextCell(in), year)
			assert.GreaterOrEqual(t, got.Year(), MinYear, "input %q year %d", in, year)
		}
	}
}

func TestResolver_Location(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	r := NewResolver(loc)

	got := r.ParseText("9 feb 20:59", 2024)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 20, got.Hour())
}

func TestResolver_HourOverflowRollsForward(t *testing.T) {
	r := newTestResolver()
	got := r.ParseText("9 feb 25:10", 2024)
	assert.True(t, time.Date(2024, 2, 10, 1, 10, 0, 0, time.UTC).Equal(got), "got %v", got)
}

func TestResolver_DaylightSavingKeepsWallClock(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r := NewResolver(loc)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"spring forward", "10 mar 20:59 hs", time.Date(2024, 3, 10, 20, 59, 0, 0, loc)},
		{"fall back", "3 nov 20:59 hs", time.Date(2024, 11, 3, 20, 59, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ParseText(tt.text, 2024)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			assert.Equal(t, 20, got.Hour())
			assert.Equal(t, 59, got.Minute())
		})
	}
}

func TestResolveWithStatus_HardSpace(t *testing.T) {
	r := newTestResolver()

	got, ok := r.ResolveWithStatus(sheet.TextCell("9\u00a0feb 20:59 hs"), 2024)
	assert.True(t, ok)
	assert.True(t, time.Date(2024, 2, 9, 20, 59, 0, 0, time.UTC).Equal(got), "got %v", got)
}
