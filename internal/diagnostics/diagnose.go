package diagnostics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"loanprep/internal/config"
	"loanprep/internal/source"
)

// scanChunkSize only bounds memory; diagnostics do not depend on it.
const scanChunkSize = 10_000

// Diagnosis is the structural check of one file
type Diagnosis struct {
	Path string `json:"path"`
	// TotalLines counts records including the header. A quoted field with a
	// line break is one record.
	TotalLines     int                   `json:"total_lines"`
	ExpectedFields int                   `json:"expected_fields"`
	BadLines       int                   `json:"bad_lines"`
	Samples        []source.MalformedRow `json:"samples,omitempty"`
}

// OK reports whether every record has the header's field count
func (d *Diagnosis) OK() bool {
	return d.BadLines == 0
}

var snippetNewlines = strings.NewReplacer("\r", " ", "\n", " ")

// Diagnose reads path with the CSV quoting rules and counts records whose
// field count differs from the header. The first config.MaxMalformedSamples
// bad records are kept as samples.
func Diagnose(ctx context.Context, path string, logger *slog.Logger) (*Diagnosis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "diagnose"), slog.String("path", path))

	reader, err := source.Open(path, source.Options{
		ChunkSize:   scanChunkSize,
		Malformed:   config.MalformedSkip,
		SampleLimit: config.MaxMalformedSamples,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	for {
		_, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	malformed := reader.Malformed()
	d := &Diagnosis{
		Path:           path,
		TotalLines:     1 + reader.RowsRead() + malformed.Count,
		ExpectedFields: len(reader.SourceHeader()),
		BadLines:       malformed.Count,
		Samples:        malformed.Samples,
	}
	for i := range d.Samples {
		d.Samples[i].Snippet = snippetNewlines.Replace(d.Samples[i].Snippet)
	}

	logger.InfoContext(ctx, "Diagnosis complete",
		slog.Int("total_lines", d.TotalLines),
		slog.Int("expected_fields", d.ExpectedFields),
		slog.Int("bad_lines", d.BadLines))
	return d, nil
}
