package pipeline

import (
	"context"

	infra "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
)

// StorageService is the subset of storage operations used by ingestion.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string, maxBytes int64) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// ImportRepository is the subset of database operations used by ingestion.
// For the full set, see infra.SalesRepository.
type ImportRepository interface {
	FindImportByChecksum(ctx context.Context, checksum string) (*infra.ImportRow, error)
	InsertImport(ctx context.Context, row *infra.ImportRow) error
	InsertSales(ctx context.Context, rows []*infra.SaleRow) error
	MarkImportFailed(ctx context.Context, importID string, importErr error)
	MarkImportSucceeded(ctx context.Context, importID string, summary infra.ImportSummary) error
}
