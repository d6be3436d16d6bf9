// Package app wires configuration into the components shared by the
// command-line tool and the API server.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/settlement-tracker/internal/config"
	"github.com/dvloznov/settlement-tracker/internal/jobs"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/metrics"
	"github.com/dvloznov/settlement-tracker/internal/pipeline"
	"github.com/rs/zerolog"
)

// NewLogger builds the logger described by cfg.
func NewLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.NewWithLevel(cfg.LogLevel, cfg.LogFormat)
}

// NewProcessor builds a settlement processor from cfg. The vocabulary file,
// when set, is merged into the built-in tables. m may be nil.
func NewProcessor(cfg *config.Config, m *metrics.Metrics) (*pipeline.Processor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("NewProcessor: %w", err)
	}

	vocab, err := config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("NewProcessor: %w", err)
	}

	return pipeline.NewProcessor(pipeline.ProcessorConfig{
		MaxInputBytes: cfg.MaxInputBytes,
		Vocabulary:    &vocab.Fees,
		HeaderLabels:  vocab.Headers,
		Location:      loc,
		Metrics:       m,
	}), nil
}

// IngestJobHandler returns the job handler that ingests settlement files
// from GCS. The outcome is written back onto the job.
func IngestJobHandler(storage pipeline.StorageService, repo pipeline.ImportRepository, proc *pipeline.Processor) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		ingestJob, ok := job.(*jobs.IngestSettlementJob)
		if !ok {
			return fmt.Errorf("IngestJobHandler: unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().Msg("Processing ingestion job")

		result, err := pipeline.IngestSettlementFromGCSWithDeps(ctx, ingestJob.GCSURI, storage, repo, proc)
		if err != nil {
			return err
		}

		ingestJob.ImportID = result.ImportID
		ingestJob.Skipped = result.Skipped
		ingestJob.Records = result.Records

		log.Info().
			Str("import_id", result.ImportID).
			Bool("skipped", result.Skipped).
			Int("records", result.Records).
			Msg("Ingestion job finished")
		return nil
	}
}
