package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"loanprep/internal/config"
	apperrors "loanprep/internal/errors"
)

// SupportedExtensions are the input formats the chunk reader understands
var SupportedExtensions = []string{".csv", ".xlsx"}

// FileValidator checks input and output paths before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateInputFile checks that path exists, is a regular readable file and
// has a supported extension.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("Input file does not exist", slog.String("file", path))
		return apperrors.NewNotFoundError(path, err)
	}
	if err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to stat %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if !IsSupported(path) {
		return apperrors.NewValidationError(fmt.Sprintf("%s: unsupported file type, want one of %s",
			path, strings.Join(SupportedExtensions, ", ")))
	}

	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewIOError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created, and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewIOError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateJob checks the paths of one job: the input must exist and the
// output must be a CSV file that is not itself a staging file.
func (v *FileValidator) ValidateJob(input, output string) error {
	if err := v.ValidateInputFile(input); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(output), ".csv") {
		return apperrors.NewValidationError(fmt.Sprintf("output %s must be a .csv file", output))
	}
	if strings.HasPrefix(filepath.Base(output), config.StagingPrefix) {
		return apperrors.NewValidationError(fmt.Sprintf("output %s uses the reserved prefix %q", output, config.StagingPrefix))
	}
	return v.ValidateOutputDirectory(filepath.Dir(output))
}

// ListInputs returns the supported input files directly inside dir, sorted.
// Leftover staging files are skipped.
func (v *FileValidator) ListInputs(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewNotFoundError(dir, err)
	}
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to list %s", dir), err)
	}

	var inputs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, config.StagingPrefix) || !IsSupported(name) {
			continue
		}
		inputs = append(inputs, filepath.Join(dir, name))
	}
	sort.Strings(inputs)

	if len(inputs) == 0 {
		v.logger.Warn("No input files found", slog.String("directory", dir))
	} else {
		v.logger.Info("Input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", len(inputs)))
	}
	return inputs, nil
}

// IsSupported reports whether path has a supported input extension
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
