package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/sheet"
)

// PipelineStep represents a single step in the settlement pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Input    io.Reader
	Data     []byte
	Checksum string
	Format   sheet.Format

	Rows        []sheet.Row
	Year        int
	Columns     sheet.ColumnMap
	HeaderRow   int
	HeaderFound bool

	Records []domain.SaleRecord
	Stats   Stats
}

// Step 1: ReadInputStep reads the input into memory, enforcing the size cap.
type ReadInputStep struct {
	MaxBytes int64
}

func (s *ReadInputStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Data == nil {
		if state.Input == nil {
			return fmt.Errorf("ReadInputStep: no input")
		}
		data, err := io.ReadAll(io.LimitReader(state.Input, s.MaxBytes+1))
		if err != nil {
			return fmt.Errorf("ReadInputStep: reading input: %w", err)
		}
		state.Data = data
	}

	if int64(len(state.Data)) > s.MaxBytes {
		return fmt.Errorf("ReadInputStep: more than %d bytes: %w", s.MaxBytes, ErrInputTooLarge)
	}

	sum := sha256.Sum256(state.Data)
	state.Checksum = hex.EncodeToString(sum[:])
	return nil
}

// Step 2: DecodeStep detects the workbook format and materializes the first sheet.
type DecodeStep struct{}

func (s *DecodeStep) Execute(ctx context.Context, state *PipelineState) error {
	format, err := sheet.Detect(state.Data)
	if err != nil {
		return fmt.Errorf("DecodeStep: %w", err)
	}
	rows, err := sheet.DecodeFormat(state.Data, format)
	if err != nil {
		return fmt.Errorf("DecodeStep: %w", err)
	}
	state.Format = format
	state.Rows = rows

	log := logger.FromContext(ctx)
	log.Debug().
		Str("format", string(format)).
		Int("rows", len(rows)).
		Msg("Workbook decoded")
	return nil
}

// Step 3: InferYearStep finds the reporting year in the leading rows.
type InferYearStep struct {
	Now func() time.Time
}

func (s *InferYearStep) Execute(ctx context.Context, state *PipelineState) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	state.Year = sheet.InferYear(state.Rows, now())
	return nil
}

// Step 4: LocateHeaderStep finds the header row and maps its columns.
// A sheet without a header is not an error; it simply has no records.
type LocateHeaderStep struct {
	Labels sheet.HeaderLabels
}

func (s *LocateHeaderStep) Execute(ctx context.Context, state *PipelineState) error {
	labels := s.Labels
	if labels == nil {
		labels = sheet.DefaultHeaderLabels()
	}

	cols, header, found := sheet.LocateHeaderWith(state.Rows, labels)
	state.Columns = cols
	state.HeaderRow = header
	state.HeaderFound = found

	log := logger.FromContext(ctx)
	if !found {
		log.Warn().Int("rows", len(state.Rows)).Msg("No header row found; sheet has no records")
		return nil
	}
	log.Debug().
		Int("header_row", header).
		Interface("columns", cols.Indices()).
		Msg("Header located")
	return nil
}

// Step 5: BuildRecordsStep builds a record for every data row after the header.
// Rows without an operation id are skipped and counted.
type BuildRecordsStep struct {
	Builder *Builder
}

func (s *BuildRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	if !state.HeaderFound {
		state.Records = []domain.SaleRecord{}
		return nil
	}

	b := s.Builder
	if b == nil {
		b = NewBuilder(nil, nil)
	}
	log := logger.FromContext(ctx)

	records := make([]domain.SaleRecord, 0, len(state.Rows)-state.HeaderRow-1)
	for i := state.HeaderRow + 1; i < len(state.Rows); i++ {
		raw := NewRawSale(state.Rows[i], state.Columns, state.Year, i)
		if OperationID(raw.OperationID) == "" {
			state.Stats.SkippedRows++
			continue
		}

		rec, d := b.build(raw)
		if d.date {
			state.Stats.DegradedDates++
			log.Debug().Int("row", i).Str("operation_id", rec.OperationID).Str("date_raw", rec.DateRaw).
				Msg("Unreadable purchase date; using current time")
		}
		if d.amounts > 0 {
			state.Stats.DegradedAmounts += d.amounts
			log.Debug().Int("row", i).Str("operation_id", rec.OperationID).Int("fields", d.amounts).
				Msg("Unreadable amount; using zero")
		}
		records = append(records, rec)
	}

	state.Stats.DataRows = len(records)
	state.Records = records
	return nil
}

// Step 7: SortRecordsStep orders records newest first, keeping file order for ties.
type SortRecordsStep struct{}

func (s *SortRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	SortByDateDesc(state.Records)
	return nil
}

// SortByDateDesc sorts records by date descending. Equal dates keep their order.
func SortByDateDesc(records []domain.SaleRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. A cancelled context
// stops it between steps.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline cancelled before step %d: %w", i+1, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
