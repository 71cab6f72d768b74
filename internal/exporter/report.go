package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "loanprep/internal/errors"
)

// WriteJSON encodes v as indented JSON to w
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteReport writes v as JSON to path. The path "-" writes to stdout.
func WriteReport(path string, v any) error {
	if path == "-" {
		return WriteJSON(os.Stdout, v)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewIOError("failed to create report directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to create report %s", path), err)
	}
	if err := WriteJSON(file, v); err != nil {
		file.Close()
		return apperrors.NewIOError("failed to write report", err)
	}
	if err := file.Close(); err != nil {
		return apperrors.NewIOError("failed to close report", err)
	}
	return nil
}
