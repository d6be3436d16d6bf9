// Package dates resolves the purchase date of a settlement row. Exports
// either store a real date cell or free text such as "9 feb 20:59 hs" with
// the year omitted.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dvloznov/settlement-tracker/internal/sheet"
)

// MinYear is the earliest year accepted in a resolved date. Anything older
// is treated as unresolvable and replaced by the current time.
const MinYear = 2000

var textDate = regexp.MustCompile(`(\d{1,2})\s+([a-z]{3,4}).*?(\d{1,2}):(\d{2})`)

var months = map[string]time.Month{
	"ene": time.January, "jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"abr": time.April, "apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August, "aug": time.August,
	"sep": time.September, "set": time.September,
	"oct": time.October,
	"nov": time.November,
	"dic": time.December, "dec": time.December,
}

// Resolver turns date cells into times. The zero value uses the local zone
// and the system clock.
type Resolver struct {
	Location *time.Location
	Now      func() time.Time
}

// NewResolver creates a resolver for loc. A nil loc means time.Local.
func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{Location: loc, Now: time.Now}
}

func (r *Resolver) location() *time.Location {
	if r == nil || r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Resolver) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now().In(r.location())
	}
	return r.Now()
}

// Resolve returns the date held by cell, using year for text dates.
func (r *Resolver) Resolve(cell sheet.Cell, year int) time.Time {
	t, _ := r.ResolveWithStatus(cell, year)
	return t
}

// ResolveWithStatus is Resolve that also reports whether the cell produced a
// usable date. When it did not, the returned time is the current time.
func (r *Resolver) ResolveWithStatus(cell sheet.Cell, year int) (time.Time, bool) {
	var t time.Time
	if cell.Kind == sheet.KindDate {
		t = cell.Time
	} else {
		t = r.ParseText(cell.Text, year)
	}

	if t.Year() < MinYear {
		return r.now(), false
	}
	return t, true
}

// ParseText parses free text like "09 feb 20:59 hs" in the given year.
// Unknown month abbreviations resolve to January. Text without a day, month
// and time, or naming a day the month does not have, yields the zero time.
func (r *Resolver) ParseText(text string, year int) time.Time {
	m := textDate.FindStringSubmatch(clean(text))
	if m == nil {
		return time.Time{}
	}

	day, _ := strconv.Atoi(m[1])
	hours, _ := strconv.Atoi(m[3])
	minutes, _ := strconv.Atoi(m[4])

	month, ok := months[m[2][:3]]
	if !ok {
		month = time.January
	}

	loc := r.location()
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Day() != day || d.Month() != month {
		return time.Time{}
	}
	// Wall-clock time; hours past 23 roll into the next day.
	return time.Date(year, month, day, hours, minutes, 0, 0, loc)
}

// clean lowercases text, turns every space (hard spaces included) into ' ',
// drops the "hs" suffix and removes punctuation other than ':' and '.'.
func clean(text string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, strings.ToLower(text))
	s = strings.ReplaceAll(s, " hs", "")
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
			return r
		case r == '_', r == ':', r == '.':
			return r
		}
		return -1
	}, s)
}
