package operations

import (
	"time"

	"loanprep/internal/dataprocessing"
	"loanprep/internal/source"
)

// ColumnReport summarizes one input column of a run
type ColumnReport struct {
	Name    string              `json:"name"`
	Kind    dataprocessing.Kind `json:"kind"`
	Missing int                 `json:"missing"`
	Dropped bool                `json:"dropped,omitempty"`
}

// Result holds the counters of one run. It is serialized as the run report.
type Result struct {
	RunID           string                      `json:"run_id"`
	Job             string                      `json:"job"`
	Input           string                      `json:"input"`
	Output          string                      `json:"output"`
	EmptyColumnMode string                      `json:"empty_column_mode"`
	Header          []string                    `json:"header"`
	RowsRead        int                         `json:"rows_read"`
	RowsWritten     int                         `json:"rows_written"`
	Chunks          int                         `json:"chunks"`
	CellsFilled     int                         `json:"cells_filled"`
	Malformed       source.MalformedStats       `json:"malformed"`
	Columns         []ColumnReport              `json:"columns"`
	Dropped         []string                    `json:"dropped_columns"`
	Drift           []dataprocessing.DriftEvent `json:"drift"`
	StartedAt       time.Time                   `json:"started_at"`
	Duration        time.Duration               `json:"-"`
	DurationSeconds float64                     `json:"duration_seconds"`
}

// Report groups the results of several jobs
type Report struct {
	Results []*Result `json:"results"`
	Error   string    `json:"error,omitempty"`
}
