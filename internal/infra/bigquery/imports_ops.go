package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"google.golang.org/api/iterator"
)

const importColumns = `
			import_id,
			gcs_uri,
			original_filename,
			file_format,
			source_system,
			checksum_sha256,
			report_year,
			status,
			error_message,
			record_count,
			skipped_rows,
			degraded_dates,
			degraded_amounts,
			started_ts,
			finished_ts`

// InsertImport creates an import row with a DML insert so that it can be
// updated right away; streamed rows cannot be updated for a while.
func InsertImport(ctx context.Context, target Target, row *ImportRow) error {
	client, err := bigquery.NewClient(ctx, target.ProjectID)
	if err != nil {
		return fmt.Errorf("InsertImport: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertImportWithClient(ctx, client, target, row)
}

// InsertImportWithClient is InsertImport using the provided BigQuery client.
func InsertImportWithClient(ctx context.Context, client *bigquery.Client, target Target, row *ImportRow) error {
	if err := target.validate(); err != nil {
		return fmt.Errorf("InsertImport: %w", err)
	}

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			import_id,
			gcs_uri,
			original_filename,
			file_format,
			source_system,
			checksum_sha256,
			status,
			started_ts
		)
		VALUES (
			@import_id,
			@gcs_uri,
			@original_filename,
			@file_format,
			@source_system,
			@checksum_sha256,
			@status,
			@started_ts
		)
	`, target.table(importsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "import_id", Value: row.ImportID},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "file_format", Value: row.FileFormat},
		{Name: "source_system", Value: row.SourceSystem},
		{Name: "checksum_sha256", Value: row.ChecksumSHA256},
		{Name: "status", Value: row.Status},
		{Name: "started_ts", Value: row.StartedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertImport: %w", err)
	}
	return nil
}

// MarkImportFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged, not returned, so callers can report the original error.
func MarkImportFailedWithClient(ctx context.Context, client *bigquery.Client, target Target, importID string, importErr error) {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE import_id = @import_id
	`, target.table(importsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(importErr)},
		{Name: "import_id", Value: importID},
	}

	if err := runDML(ctx, q); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("import_id", importID).
			Msg("Failed to mark import as failed")
	}
}

// MarkImportSucceededWithClient sets status=SUCCESS and the row counts.
func MarkImportSucceededWithClient(ctx context.Context, client *bigquery.Client, target Target, importID string, summary ImportSummary) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = NULL,
		    file_format = @file_format,
		    report_year = @report_year,
		    record_count = @record_count,
		    skipped_rows = @skipped_rows,
		    degraded_dates = @degraded_dates,
		    degraded_amounts = @degraded_amounts
		WHERE import_id = @import_id
	`, target.table(importsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "file_format", Value: summary.FileFormat},
		{Name: "report_year", Value: summary.ReportYear},
		{Name: "record_count", Value: summary.RecordCount},
		{Name: "skipped_rows", Value: summary.SkippedRows},
		{Name: "degraded_dates", Value: summary.DegradedDates},
		{Name: "degraded_amounts", Value: summary.DegradedAmounts},
		{Name: "import_id", Value: importID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkImportSucceeded: %w", err)
	}
	return nil
}

// FindImportByChecksumWithClient returns the successful import of a file with
// the given SHA-256 checksum, or nil if there is none.
func FindImportByChecksumWithClient(ctx context.Context, client *bigquery.Client, target Target, checksum string) (*ImportRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE checksum_sha256 = @checksum
		  AND status = 'SUCCESS'
		ORDER BY started_ts DESC
		LIMIT 1
	`, importColumns, target.table(importsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindImportByChecksum: reading query: %w", err)
	}

	var row ImportRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindImportByChecksum: reading row: %w", err)
	}
	return &row, nil
}

// ListImportsWithClient returns every import, newest first.
func ListImportsWithClient(ctx context.Context, client *bigquery.Client, target Target) ([]*ImportRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		ORDER BY started_ts DESC
	`, importColumns, target.table(importsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListImports: reading query: %w", err)
	}

	var imports []*ImportRow
	for {
		var row ImportRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListImports: iterating: %w", err)
		}
		imports = append(imports, &row)
	}
	return imports, nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
