package bigquery

import (
	"fmt"
)

const (
	importsTable = "imports"
	salesTable   = "sales"

	// maxErrorMessageLen bounds error_message values written to the imports table.
	maxErrorMessageLen = 2000
)

// Target names the project and dataset that hold the settlement tables.
type Target struct {
	ProjectID string
	Dataset   string
}

// table returns the fully qualified, backtick-quoted name of a table.
func (t Target) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.Dataset, name)
}

func (t Target) validate() error {
	if t.ProjectID == "" || t.Dataset == "" {
		return fmt.Errorf("bigquery target needs project and dataset, got %q/%q", t.ProjectID, t.Dataset)
	}
	return nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
