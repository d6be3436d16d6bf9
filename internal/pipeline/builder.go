package pipeline

import (
	"strings"

	"github.com/dvloznov/settlement-tracker/internal/dates"
	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/dvloznov/settlement-tracker/internal/fees"
	"github.com/dvloznov/settlement-tracker/internal/money"
	"github.com/dvloznov/settlement-tracker/internal/sheet"
	"github.com/shopspring/decimal"
)

// Builder turns raw rows into SaleRecords.
type Builder struct {
	classifier *fees.Classifier
	resolver   *dates.Resolver
}

// NewBuilder creates a builder. Nil arguments fall back to the default
// vocabulary and a resolver in the local zone.
func NewBuilder(classifier *fees.Classifier, resolver *dates.Resolver) *Builder {
	if classifier == nil {
		classifier = fees.NewClassifier(fees.DefaultVocabulary())
	}
	if resolver == nil {
		resolver = dates.NewResolver(nil)
	}
	return &Builder{classifier: classifier, resolver: resolver}
}

// degradation records which fields of a row fell back to a default.
type degradation struct {
	date    bool
	amounts int
}

// Build constructs a record from raw. It never fails: unreadable fields
// take their defaults.
func (b *Builder) Build(raw RawSale) domain.SaleRecord {
	rec, _ := b.build(raw)
	return rec
}

func (b *Builder) build(raw RawSale) (domain.SaleRecord, degradation) {
	var d degradation

	date, ok := b.resolver.ResolveWithStatus(raw.Date, raw.Year)
	if !ok {
		d.date = true
	}

	amount := func(c sheet.Cell) decimal.Decimal {
		v, ok := parseAmountCell(c)
		if !ok {
			d.amounts++
		}
		return v
	}
	gross := amount(raw.Gross)
	net := amount(raw.Net)
	costs := amount(raw.Costs)

	breakdown := raw.Breakdown.Text
	split := b.classifier.Classify(breakdown, costs)

	product := strings.TrimSpace(raw.Product.String())
	if product == "" {
		product = DefaultProduct
	}

	return domain.SaleRecord{
		OperationID:      OperationID(raw.OperationID),
		Date:             date,
		DateRaw:          raw.Date.Text,
		Product:          product,
		GrossAmount:      gross,
		NetAmount:        net,
		TotalCosts:       costs,
		TaxesAmount:      split.Taxes,
		ShippingAmount:   split.Shipping,
		CommissionAmount: split.Commission,
		FeeBreakdown:     breakdown,
	}, d
}

// OperationID renders the id cell as trimmed text. Numeric ids are printed
// in full, never in exponent form.
func OperationID(c sheet.Cell) string {
	return strings.TrimSpace(c.String())
}

// parseAmountCell reads a money column. Numeric cells use their stored value.
func parseAmountCell(c sheet.Cell) (decimal.Decimal, bool) {
	switch c.Kind {
	case sheet.KindNumber:
		return decimal.NewFromFloat(c.Number), true
	case sheet.KindEmpty:
		return decimal.Zero, true
	case sheet.KindDate:
		return decimal.Zero, false
	}
	return money.TryParseAmount(c.Text)
}
