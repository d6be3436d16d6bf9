package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	infra "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/google/uuid"
)

// IngestResult describes one ingestion of a settlement file.
type IngestResult struct {
	ImportID string `json:"import_id"`
	Skipped  bool   `json:"skipped"`
	Records  int    `json:"records"`
	Stats    Stats  `json:"stats"`
}

// IngestSettlementFromGCSWithDeps fetches a settlement workbook from GCS,
// parses it and stores the import and its sales. A file whose checksum was
// already imported successfully is skipped.
func IngestSettlementFromGCSWithDeps(
	ctx context.Context,
	gcsURI string,
	storage StorageService,
	repo ImportRepository,
	proc *Processor,
) (*IngestResult, error) {
	log := logger.FromContext(ctx).With().Str("gcs_uri", gcsURI).Logger()
	ctx = logger.WithContext(ctx, log)

	// 1. Fetch the workbook bytes from GCS.
	data, err := storage.FetchFromGCS(ctx, gcsURI, proc.MaxInputBytes())
	if err != nil {
		return nil, fmt.Errorf("IngestSettlementFromGCS: fetching file: %w", err)
	}

	// 2. Skip files that were already imported.
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	existing, err := repo.FindImportByChecksum(ctx, checksum)
	if err != nil {
		return nil, fmt.Errorf("IngestSettlementFromGCS: checking duplicates: %w", err)
	}
	if existing != nil {
		log.Info().
			Str("import_id", existing.ImportID).
			Str("checksum", checksum).
			Msg("File already imported; skipping")
		return &IngestResult{ImportID: existing.ImportID, Skipped: true}, nil
	}

	// 3. Record the import (status=RUNNING).
	importID := uuid.NewString()
	row := &infra.ImportRow{
		ImportID:         importID,
		GCSURI:           gcsURI,
		OriginalFilename: storage.ExtractFilenameFromGCSURI(gcsURI),
		SourceSystem:     SourceSystem,
		ChecksumSHA256:   checksum,
		Status:           StatusRunning,
		StartedTS:        time.Now(),
	}
	if err := repo.InsertImport(ctx, row); err != nil {
		return nil, fmt.Errorf("IngestSettlementFromGCS: %w", err)
	}

	// 4. Parse the workbook.
	result, err := proc.processBytes(ctx, importID, data)
	if err != nil {
		repo.MarkImportFailed(ctx, importID, err)
		return nil, fmt.Errorf("IngestSettlementFromGCS: %w", err)
	}

	// 5. Store the sales.
	sales := infra.NewSaleRows(importID, result.Records, time.Now())
	if err := repo.InsertSales(ctx, sales); err != nil {
		repo.MarkImportFailed(ctx, importID, err)
		return nil, fmt.Errorf("IngestSettlementFromGCS: %w", err)
	}

	// 6. Mark the import as SUCCESS.
	summary := infra.ImportSummary{
		FileFormat:      string(result.Format),
		ReportYear:      result.Year,
		RecordCount:     len(result.Records),
		SkippedRows:     result.Stats.SkippedRows,
		DegradedDates:   result.Stats.DegradedDates,
		DegradedAmounts: result.Stats.DegradedAmounts,
	}
	if err := repo.MarkImportSucceeded(ctx, importID, summary); err != nil {
		return nil, fmt.Errorf("IngestSettlementFromGCS: %w", err)
	}

	log.Info().
		Str("import_id", importID).
		Int("records", len(result.Records)).
		Msg("Settlement ingested")

	return &IngestResult{
		ImportID: importID,
		Records:  len(result.Records),
		Stats:    result.Stats,
	}, nil
}
