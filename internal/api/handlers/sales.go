package handlers

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/settlement-tracker/internal/api/middleware"
	"github.com/dvloznov/settlement-tracker/internal/domain"
	infra "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/report"
)

// SalesReader queries stored sales.
type SalesReader interface {
	QuerySalesByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*infra.SaleRow, error)
}

// SalesHandler handles sales-related endpoints.
type SalesHandler struct {
	repo SalesReader
	loc  *time.Location
	now  func() time.Time
}

// NewSalesHandler creates a new sales handler. Sale times are reported in loc.
func NewSalesHandler(repo SalesReader, loc *time.Location) *SalesHandler {
	if loc == nil {
		loc = time.Local
	}
	return &SalesHandler{repo: repo, loc: loc, now: time.Now}
}

// ListSales handles GET /api/sales?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
// Missing bounds default to the year ending today.
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	today := civil.DateOf(h.now().In(h.loc))
	end := today
	start := civil.DateOf(today.In(time.UTC).AddDate(-1, 0, 0))

	var err error
	if s := query.Get("start_date"); s != "" {
		if start, err = report.ParseDay(s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if end, err = report.ParseDay(s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}
	if end.Before(start) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	rows, err := h.repo.QuerySalesByDateRange(ctx, start.In(time.UTC), end.In(time.UTC))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to query sales")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query sales")
		return
	}

	records := make([]domain.SaleRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToDomain(h.loc))
	}
	records = report.FilterByDateRange(records, start, end)

	summary := report.Summarize(records)
	summary.From, summary.To = start, end

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sales":        records,
		"count":        len(records),
		"daily_totals": report.DailyTotals(records),
		"summary":      summary,
	})
}
