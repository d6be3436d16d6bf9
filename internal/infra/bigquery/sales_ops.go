package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// insertBatchSize bounds the rows sent in one streaming insert request.
const insertBatchSize = 500

// InsertSales streams a batch of SaleRow into the sales table.
func InsertSales(ctx context.Context, target Target, rows []*SaleRow) error {
	client, err := bigquery.NewClient(ctx, target.ProjectID)
	if err != nil {
		return fmt.Errorf("InsertSales: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertSalesWithClient(ctx, client, target, rows)
}

// InsertSalesWithClient is InsertSales using the provided BigQuery client.
func InsertSalesWithClient(ctx context.Context, client *bigquery.Client, target Target, rows []*SaleRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := target.validate(); err != nil {
		return fmt.Errorf("InsertSales: %w", err)
	}

	inserter := client.DatasetInProject(target.ProjectID, target.Dataset).Table(salesTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertSales: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// QuerySalesByDateRange returns sales whose date falls within [startDate, endDate].
func QuerySalesByDateRange(ctx context.Context, target Target, startDate, endDate time.Time) ([]*SaleRow, error) {
	client, err := bigquery.NewClient(ctx, target.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("QuerySalesByDateRange: bigquery client: %w", err)
	}
	defer client.Close()

	return QuerySalesByDateRangeWithClient(ctx, client, target, startDate, endDate)
}

// QuerySalesByDateRangeWithClient is QuerySalesByDateRange using the provided
// client. Only sales from successful imports are returned, newest first.
func QuerySalesByDateRangeWithClient(ctx context.Context, client *bigquery.Client, target Target, startDate, endDate time.Time) ([]*SaleRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			s.sale_id,
			s.import_id,
			s.operation_id,
			s.sale_date,
			s.sale_datetime,
			s.date_raw,
			s.product,
			s.gross_amount,
			s.net_amount,
			s.total_costs,
			s.taxes_amount,
			s.shipping_amount,
			s.commission_amount,
			s.fee_breakdown,
			s.created_ts
		FROM %s s
		INNER JOIN %s i
		  ON s.import_id = i.import_id
		WHERE s.sale_date >= @start_date
		  AND s.sale_date <= @end_date
		  AND i.status = 'SUCCESS'
		ORDER BY s.sale_datetime DESC
	`, target.table(salesTable), target.table(importsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(startDate)},
		{Name: "end_date", Value: civil.DateOf(endDate)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QuerySalesByDateRange: query read: %w", err)
	}

	var rows []*SaleRow
	for {
		var r SaleRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QuerySalesByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
