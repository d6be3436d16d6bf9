// Package fees splits the free-text fee breakdown of a settlement row into
// taxes, shipping and the residual platform commission.
package fees

import (
	"regexp"
	"strings"

	"github.com/dvloznov/settlement-tracker/internal/money"
	"github.com/shopspring/decimal"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Breakdown is the classified view of one fee-breakdown field.
// Commission is always TotalCosts - (Taxes + Shipping).
type Breakdown struct {
	Taxes      decimal.Decimal
	Shipping   decimal.Decimal
	Commission decimal.Decimal
}

// Classifier assigns fee lines to the tax and shipping buckets.
type Classifier struct {
	tax      []string
	shipping []string
}

// NewClassifier creates a classifier for the given vocabulary.
func NewClassifier(v Vocabulary) *Classifier {
	c := &Classifier{}
	for _, kw := range v.Tax {
		if k := fold(kw); k != "" {
			c.tax = append(c.tax, k)
		}
	}
	for _, kw := range v.Shipping {
		if k := fold(kw); k != "" {
			c.shipping = append(c.shipping, k)
		}
	}
	return c
}

// Classify splits field into lines and accumulates the amount of every line
// that mentions a tax or shipping keyword. A line matching both tables counts
// in both. Whatever is left of totalCosts is the commission.
func (c *Classifier) Classify(field string, totalCosts decimal.Decimal) Breakdown {
	taxes := decimal.Zero
	shipping := decimal.Zero

	for _, line := range Lines(field) {
		folded := fold(line)
		isTax := containsAny(folded, c.tax)
		isShipping := containsAny(folded, c.shipping)
		if !isTax && !isShipping {
			continue
		}

		amount := money.ExtractAmount(line)
		if isTax {
			taxes = taxes.Add(amount)
		}
		if isShipping {
			shipping = shipping.Add(amount)
		}
	}

	return Breakdown{
		Taxes:      taxes,
		Shipping:   shipping,
		Commission: totalCosts.Sub(taxes.Add(shipping)),
	}
}

// Lines splits a fee-breakdown field on any run of CR/LF and drops blanks.
func Lines(field string) []string {
	if field == "" {
		return nil
	}
	var out []string
	for _, l := range lineBreaks.Split(field, -1) {
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
