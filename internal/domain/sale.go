package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord is one settled marketplace sale, normalized from a row of the
// settlement export. CommissionAmount always equals
// TotalCosts - (TaxesAmount + ShippingAmount).
type SaleRecord struct {
	OperationID string    `json:"operation_id"`
	Date        time.Time `json:"date"`
	DateRaw     string    `json:"date_raw,omitempty"`
	Product     string    `json:"product"`

	GrossAmount decimal.Decimal `json:"gross_amount"` // "Cobro"
	NetAmount   decimal.Decimal `json:"net_amount"`   // "Total a recibir"
	TotalCosts  decimal.Decimal `json:"total_costs"`  // "Cargos e impuestos"

	TaxesAmount      decimal.Decimal `json:"taxes_amount"`
	ShippingAmount   decimal.Decimal `json:"shipping_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`

	FeeBreakdown string `json:"fee_breakdown,omitempty"` // "Resumen", one fee per line
}

// Reconciles reports whether the fee decomposition adds up to TotalCosts.
func (s SaleRecord) Reconciles() bool {
	return s.TaxesAmount.Add(s.ShippingAmount).Add(s.CommissionAmount).Equal(s.TotalCosts)
}
