package pipeline

// Defaults for settlement processing. Most can be overridden through
// ProcessorConfig or the service configuration.
const (
	// DefaultProduct is used when a row has no product description.
	DefaultProduct = "Varios"

	// DefaultMaxInputBytes caps the size of an uploaded workbook (20 MiB).
	DefaultMaxInputBytes int64 = 20 * 1024 * 1024

	// SourceSystem identifies the export format stored with each import.
	SourceSystem = "MARKETPLACE_SETTLEMENT"
)

// Import statuses stored in the imports table.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)
