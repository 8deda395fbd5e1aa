package domain

import (
	"fmt"
	"strings"
)

// ColumnDetectionError reports that a dataset has no recognizable latitude
// or longitude column.
type ColumnDetectionError struct {
	Source  string
	Missing []string // "latitude", "longitude"
	Columns []string
}

func (e *ColumnDetectionError) Error() string {
	src := e.Source
	if src == "" {
		src = "dataset"
	}
	return fmt.Sprintf("%s: could not detect %s column(s); columns found: [%s]",
		src, strings.Join(e.Missing, " and "), strings.Join(e.Columns, ", "))
}

// SchemaError reports a structural problem with a focused or enriched table,
// such as a missing primary key column or a duplicate cell id.
type SchemaError struct {
	Source string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Source == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("%s: schema: %s", e.Source, e.Reason)
}
