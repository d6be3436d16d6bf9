// Package money parses amounts written in the es-AR convention used by the
// settlement export: "." groups thousands and "," separates decimals.
package money

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const unicodeMinus = "−"

var (
	// plainNumber accepts "1.234,56", "1234,5", "12" and ",5" once signs and
	// symbols are gone. Group sizes are not enforced.
	plainNumber = regexp.MustCompile(`^(\d[\d.]*(,\d+)?|,\d+)$`)

	// moneyMention finds the first amount inside a free-text fee line, e.g.
	// "Retención IIBB $ -1.234,56" or "-$ 12,00".
	moneyMention = regexp.MustCompile(`(?:-|` + unicodeMinus + `)?\s?\$?\s?(-?\d{1,3}(?:\.\d{3})*(?:,\d+)?)`)
)

// ParseAmount parses a direct column value such as "$ -1.234,56".
// Blank or unparseable input yields zero.
func ParseAmount(s string) decimal.Decimal {
	d, _ := TryParseAmount(s)
	return d
}

// TryParseAmount is ParseAmount with a flag reporting whether non-blank input
// failed to parse. Blank input is zero and ok.
func TryParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '$' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	cleaned = strings.ReplaceAll(cleaned, unicodeMinus, "-")
	if cleaned == "" {
		return decimal.Zero, true
	}

	negative := false
	switch {
	case strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")"):
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	case strings.HasPrefix(cleaned, "-"):
		negative = true
		cleaned = cleaned[1:]
	case strings.HasPrefix(cleaned, "+"):
		cleaned = cleaned[1:]
	case strings.HasSuffix(cleaned, "-"):
		negative = true
		cleaned = cleaned[:len(cleaned)-1]
	case strings.HasSuffix(cleaned, "+"):
		cleaned = cleaned[:len(cleaned)-1]
	}

	if !plainNumber.MatchString(cleaned) {
		return decimal.Zero, false
	}

	d, err := fromRegional(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ExtractAmount returns the first amount mentioned in a line of free text.
// The magnitude is always taken as non-negative and negated when the line
// contains an ASCII or Unicode minus anywhere. No match yields zero.
func ExtractAmount(line string) decimal.Decimal {
	m := moneyMention.FindStringSubmatch(line)
	if m == nil {
		return decimal.Zero
	}

	d, err := fromRegional(m[1])
	if err != nil {
		return decimal.Zero
	}

	d = d.Abs()
	if strings.Contains(line, "-") || strings.Contains(line, unicodeMinus) {
		d = d.Neg()
	}
	return d
}

// fromRegional converts "1.234,56" into a decimal.
func fromRegional(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	return decimal.NewFromString(s)
}
