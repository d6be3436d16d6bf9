package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

// SalesRepository provides the settlement-related database operations.
type SalesRepository interface {
	// InsertImport creates an import row, usually with status=RUNNING.
	InsertImport(ctx context.Context, row *ImportRow) error

	// MarkImportFailed sets status=FAILED, finished_ts and error_message for an import.
	MarkImportFailed(ctx context.Context, importID string, importErr error)

	// MarkImportSucceeded sets status=SUCCESS, finished_ts and the row counts for an import.
	MarkImportSucceeded(ctx context.Context, importID string, summary ImportSummary) error

	// FindImportByChecksum returns the successful import of a file with this checksum, or nil.
	FindImportByChecksum(ctx context.Context, checksum string) (*ImportRow, error)

	// ListImports returns every import, newest first.
	ListImports(ctx context.Context) ([]*ImportRow, error)

	// InsertSales inserts a batch of sales.
	InsertSales(ctx context.Context, rows []*SaleRow) error

	// QuerySalesByDateRange returns sales of successful imports within the date range.
	QuerySalesByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*SaleRow, error)
}

// Repository is the BigQuery implementation of SalesRepository. It holds a
// shared client to avoid a new connection per operation.
type Repository struct {
	client *bigquery.Client
	target Target
}

var _ SalesRepository = (*Repository)(nil)

// NewRepository creates a repository for the given project and dataset.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	target := Target{ProjectID: projectID, Dataset: dataset}
	if err := target.validate(); err != nil {
		return nil, fmt.Errorf("NewRepository: %w", err)
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, target: target}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) InsertImport(ctx context.Context, row *ImportRow) error {
	return InsertImportWithClient(ctx, r.client, r.target, row)
}

func (r *Repository) MarkImportFailed(ctx context.Context, importID string, importErr error) {
	MarkImportFailedWithClient(ctx, r.client, r.target, importID, importErr)
}

func (r *Repository) MarkImportSucceeded(ctx context.Context, importID string, summary ImportSummary) error {
	return MarkImportSucceededWithClient(ctx, r.client, r.target, importID, summary)
}

func (r *Repository) FindImportByChecksum(ctx context.Context, checksum string) (*ImportRow, error) {
	return FindImportByChecksumWithClient(ctx, r.client, r.target, checksum)
}

func (r *Repository) ListImports(ctx context.Context) ([]*ImportRow, error) {
	return ListImportsWithClient(ctx, r.client, r.target)
}

func (r *Repository) InsertSales(ctx context.Context, rows []*SaleRow) error {
	return InsertSalesWithClient(ctx, r.client, r.target, rows)
}

func (r *Repository) QuerySalesByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*SaleRow, error) {
	return QuerySalesByDateRangeWithClient(ctx, r.client, r.target, startDate, endDate)
}
