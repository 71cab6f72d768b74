package operations

import (
	"fmt"
	"path/filepath"
	"strings"

	"loanprep/internal/config"
	"loanprep/internal/dataprocessing"
	apperrors "loanprep/internal/errors"
)

// Job describes one file to clean.
type Job struct {
	Name        string
	InputPath   string
	OutputPath  string // empty replaces the input in place
	KeepColumns []string
	ChunkSize   int

	// EmptyColumns is config.EmptyColumnsDataset or config.EmptyColumnsChunk
	EmptyColumns string
	// Malformed is config.MalformedSkip or config.MalformedFail
	Malformed   string
	FailOnDrift bool

	// Passthrough disables column dropping and filling; Steps still run.
	Passthrough bool
	Steps       dataprocessing.Pipeline
}

// JobFromConfig builds a job from its config entry and the pipeline defaults
func JobFromConfig(jc config.JobConfig, p config.PipelineConfig) Job {
	return Job{
		Name:         jc.DisplayName(),
		InputPath:    jc.InputPath,
		OutputPath:   jc.OutputPath,
		KeepColumns:  jc.KeepColumns,
		ChunkSize:    jc.EffectiveChunkSize(p),
		EmptyColumns: p.EmptyColumns,
		Malformed:    p.Malformed,
		FailOnDrift:  p.FailOnDrift,
	}
}

// DisplayName returns the job name or the input file name
func (j Job) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return filepath.Base(j.InputPath)
}

// Destination returns the path the cleaned file is published under
func (j Job) Destination() string {
	if j.OutputPath != "" {
		return j.OutputPath
	}
	return j.InputPath
}

// Validate checks the job settings, filling in defaults for empty policies
func (j *Job) Validate() error {
	if strings.TrimSpace(j.InputPath) == "" {
		return apperrors.NewValidationError("input path is required")
	}
	if j.ChunkSize <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("chunk size must be positive, got %d", j.ChunkSize))
	}

	if j.EmptyColumns == "" {
		j.EmptyColumns = config.EmptyColumnsDataset
	}
	if j.EmptyColumns != config.EmptyColumnsDataset && j.EmptyColumns != config.EmptyColumnsChunk {
		return apperrors.NewValidationError(fmt.Sprintf("unknown empty column mode %q", j.EmptyColumns))
	}

	if j.Malformed == "" {
		j.Malformed = config.MalformedSkip
	}
	if j.Malformed != config.MalformedSkip && j.Malformed != config.MalformedFail {
		return apperrors.NewValidationError(fmt.Sprintf("unknown malformed row policy %q", j.Malformed))
	}
	return nil
}
