package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// ImportRow is one processed settlement file in the imports table.
type ImportRow struct {
	ImportID string `bigquery:"import_id"` // REQUIRED
	GCSURI   string `bigquery:"gcs_uri"`   // NULLABLE

	OriginalFilename string `bigquery:"original_filename"` // NULLABLE
	FileFormat       string `bigquery:"file_format"`       // NULLABLE, xls or xlsx
	SourceSystem     string `bigquery:"source_system"`     // NULLABLE
	ChecksumSHA256   string `bigquery:"checksum_sha256"`   // REQUIRED

	ReportYear bigquery.NullInt64 `bigquery:"report_year"` // NULLABLE

	Status       string              `bigquery:"status"`        // REQUIRED: RUNNING, SUCCESS, FAILED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	RecordCount     bigquery.NullInt64 `bigquery:"record_count"`     // NULLABLE
	SkippedRows     bigquery.NullInt64 `bigquery:"skipped_rows"`     // NULLABLE
	DegradedDates   bigquery.NullInt64 `bigquery:"degraded_dates"`   // NULLABLE
	DegradedAmounts bigquery.NullInt64 `bigquery:"degraded_amounts"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE
}

// ImportSummary is written to an import row when it succeeds.
type ImportSummary struct {
	FileFormat      string
	ReportYear      int
	RecordCount     int
	SkippedRows     int
	DegradedDates   int
	DegradedAmounts int
}
