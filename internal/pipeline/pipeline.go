package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/dates"
	"github.com/dvloznov/settlement-tracker/internal/fees"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/metrics"
	"github.com/dvloznov/settlement-tracker/internal/sheet"
	"github.com/google/uuid"
)

// ProcessorConfig configures a Processor. Zero fields take defaults.
type ProcessorConfig struct {
	MaxInputBytes int64
	Vocabulary    *fees.Vocabulary
	HeaderLabels  sheet.HeaderLabels
	Location      *time.Location
	Now           func() time.Time
	Metrics       *metrics.Metrics
}

// Processor turns settlement workbooks into sale records. It holds no
// per-file state and may be shared between goroutines.
type Processor struct {
	maxInputBytes int64
	labels        sheet.HeaderLabels
	builder       *Builder
	now           func() time.Time
	metrics       *metrics.Metrics
}

// NewProcessor creates a processor from cfg.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.MaxInputBytes <= 0 {
		cfg.MaxInputBytes = DefaultMaxInputBytes
	}
	vocab := fees.DefaultVocabulary()
	if cfg.Vocabulary != nil {
		vocab = *cfg.Vocabulary
	}
	if cfg.HeaderLabels == nil {
		cfg.HeaderLabels = sheet.DefaultHeaderLabels()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	resolver := &dates.Resolver{Location: cfg.Location, Now: cfg.Now}
	return &Processor{
		maxInputBytes: cfg.MaxInputBytes,
		labels:        cfg.HeaderLabels,
		builder:       NewBuilder(fees.NewClassifier(vocab), resolver),
		now:           cfg.Now,
		metrics:       cfg.Metrics,
	}
}

// MaxInputBytes returns the size cap applied to inputs.
func (p *Processor) MaxInputBytes() int64 {
	return p.maxInputBytes
}

// NewSettlementPipeline creates the standard seven-step settlement pipeline.
func (p *Processor) NewSettlementPipeline() *Pipeline {
	return NewPipeline(
		&ReadInputStep{MaxBytes: p.maxInputBytes},
		&DecodeStep{},
		&InferYearStep{Now: p.now},
		&LocateHeaderStep{Labels: p.labels},
		&BuildRecordsStep{Builder: p.builder},
		&ValidateRecordsStep{},
		&SortRecordsStep{},
	)
}

// ProcessSettlement reads a whole workbook from r and returns its records
// sorted newest first. Either every record is returned or an error.
func (p *Processor) ProcessSettlement(ctx context.Context, r io.Reader) (*Result, error) {
	return p.run(ctx, uuid.NewString(), &PipelineState{Input: r})
}

// ProcessBytes is ProcessSettlement for an in-memory workbook.
func (p *Processor) ProcessBytes(ctx context.Context, data []byte) (*Result, error) {
	return p.processBytes(ctx, uuid.NewString(), data)
}

func (p *Processor) processBytes(ctx context.Context, importID string, data []byte) (*Result, error) {
	if data == nil {
		return p.run(ctx, importID, &PipelineState{Input: bytes.NewReader(nil)})
	}
	return p.run(ctx, importID, &PipelineState{Data: data})
}

func (p *Processor) run(ctx context.Context, importID string, state *PipelineState) (*Result, error) {
	log := logger.FromContext(ctx).With().Str("import_id", importID).Logger()
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	err := p.NewSettlementPipeline().Execute(ctx, state)
	p.metrics.ObserveFile(err, len(state.Records), state.Stats.SkippedRows,
		state.Stats.DegradedDates, state.Stats.DegradedAmounts, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Settlement processing failed")
		return nil, fmt.Errorf("ProcessSettlement: %w", err)
	}

	log.Info().
		Str("format", string(state.Format)).
		Int("year", state.Year).
		Int("records", len(state.Records)).
		Int("skipped_rows", state.Stats.SkippedRows).
		Int("degraded_dates", state.Stats.DegradedDates).
		Int("degraded_amounts", state.Stats.DegradedAmounts).
		Int("duplicate_operations", state.Stats.DuplicateOperations).
		Dur("duration", time.Since(start)).
		Msg("Settlement processed")

	return &Result{
		ImportID:    importID,
		Checksum:    state.Checksum,
		Format:      state.Format,
		Year:        state.Year,
		HeaderRow:   state.HeaderRow,
		HeaderFound: state.HeaderFound,
		Columns:     state.Columns.Indices(),
		Records:     state.Records,
		Stats:       state.Stats,
	}, nil
}
