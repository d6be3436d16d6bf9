package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// numericScale is the number of decimal digits BigQuery NUMERIC keeps.
const numericScale = 9

// SaleRow is one settled sale in the sales table.
type SaleRow struct {
	SaleID   string `bigquery:"sale_id"`   // REQUIRED
	ImportID string `bigquery:"import_id"` // REQUIRED

	OperationID string `bigquery:"operation_id"` // REQUIRED

	SaleDate     civil.Date          `bigquery:"sale_date"`     // REQUIRED
	SaleDatetime civil.DateTime      `bigquery:"sale_datetime"` // REQUIRED
	DateRaw      bigquery.NullString `bigquery:"date_raw"`      // NULLABLE

	Product string `bigquery:"product"` // REQUIRED

	GrossAmount      *big.Rat `bigquery:"gross_amount"`      // REQUIRED NUMERIC
	NetAmount        *big.Rat `bigquery:"net_amount"`        // REQUIRED NUMERIC
	TotalCosts       *big.Rat `bigquery:"total_costs"`       // REQUIRED NUMERIC
	TaxesAmount      *big.Rat `bigquery:"taxes_amount"`      // REQUIRED NUMERIC
	ShippingAmount   *big.Rat `bigquery:"shipping_amount"`   // REQUIRED NUMERIC
	CommissionAmount *big.Rat `bigquery:"commission_amount"` // REQUIRED NUMERIC

	FeeBreakdown bigquery.NullString `bigquery:"fee_breakdown"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewSaleRows maps records of one import to table rows.
func NewSaleRows(importID string, records []domain.SaleRecord, created time.Time) []*SaleRow {
	rows := make([]*SaleRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, &SaleRow{
			SaleID:           uuid.NewString(),
			ImportID:         importID,
			OperationID:      rec.OperationID,
			SaleDate:         civil.DateOf(rec.Date),
			SaleDatetime:     civil.DateTimeOf(rec.Date),
			DateRaw:          nullString(rec.DateRaw),
			Product:          rec.Product,
			GrossAmount:      rec.GrossAmount.Rat(),
			NetAmount:        rec.NetAmount.Rat(),
			TotalCosts:       rec.TotalCosts.Rat(),
			TaxesAmount:      rec.TaxesAmount.Rat(),
			ShippingAmount:   rec.ShippingAmount.Rat(),
			CommissionAmount: rec.CommissionAmount.Rat(),
			FeeBreakdown:     nullString(rec.FeeBreakdown),
			CreatedTS:        created,
		})
	}
	return rows
}

// ToDomain converts the row back into a SaleRecord in loc.
func (r *SaleRow) ToDomain(loc *time.Location) domain.SaleRecord {
	if loc == nil {
		loc = time.Local
	}
	return domain.SaleRecord{
		OperationID:      r.OperationID,
		Date:             r.SaleDatetime.In(loc),
		DateRaw:          r.DateRaw.StringVal,
		Product:          r.Product,
		GrossAmount:      fromRat(r.GrossAmount),
		NetAmount:        fromRat(r.NetAmount),
		TotalCosts:       fromRat(r.TotalCosts),
		TaxesAmount:      fromRat(r.TaxesAmount),
		ShippingAmount:   fromRat(r.ShippingAmount),
		CommissionAmount: fromRat(r.CommissionAmount),
		FeeBreakdown:     r.FeeBreakdown.StringVal,
	}
}

func fromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
