package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/settlement-tracker/internal/dates"
	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/dvloznov/settlement-tracker/internal/logger"
)

// ErrInvalidRecord is returned when a built record breaks an invariant the
// builder guarantees. It indicates a bug, not bad input.
var ErrInvalidRecord = errors.New("invalid sale record")

// RecordValidator checks built records and tracks repeated operation ids.
type RecordValidator struct {
	seen map[string]int // operation id -> first row position
}

// NewRecordValidator creates a validator for one file.
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{seen: make(map[string]int)}
}

// Validate returns an error wrapping ErrInvalidRecord when rec has no
// operation id, a date before dates.MinYear, or fees that do not add up to
// TotalCosts.
func (v *RecordValidator) Validate(rec domain.SaleRecord) error {
	if rec.OperationID == "" {
		return fmt.Errorf("%w: empty operation id", ErrInvalidRecord)
	}
	if rec.Date.Year() < dates.MinYear {
		return fmt.Errorf("%w: operation %s dated %s", ErrInvalidRecord, rec.OperationID, rec.Date.Format("2006-01-02"))
	}
	if !rec.Reconciles() {
		return fmt.Errorf("%w: operation %s: taxes %s + shipping %s + commission %s != costs %s",
			ErrInvalidRecord, rec.OperationID,
			rec.TaxesAmount, rec.ShippingAmount, rec.CommissionAmount, rec.TotalCosts)
	}
	return nil
}

// Duplicate records the operation id at position i and returns the position
// of an earlier record with the same id, if any.
func (v *RecordValidator) Duplicate(operationID string, i int) (int, bool) {
	first, ok := v.seen[operationID]
	if !ok {
		v.seen[operationID] = i
	}
	return first, ok
}

// Step 6: ValidateRecordsStep checks every record and counts repeated
// operation ids. Repeated ids are kept, since an export may list one
// operation more than once.
type ValidateRecordsStep struct{}

func (s *ValidateRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	v := NewRecordValidator()

	for i, rec := range state.Records {
		if err := v.Validate(rec); err != nil {
			return fmt.Errorf("ValidateRecordsStep: %w", err)
		}
		if first, dup := v.Duplicate(rec.OperationID, i); dup {
			state.Stats.DuplicateOperations++
			log.Warn().
				Str("operation_id", rec.OperationID).
				Int("record", i).
				Int("first_record", first).
				Msg("Operation id appears more than once")
		}
	}
	return nil
}
