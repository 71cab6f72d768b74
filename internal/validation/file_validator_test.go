package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loanprep/internal/errors"
)

func newTestValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestFileValidator_ValidateInputFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   apperrors.ErrorType
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "loans.csv")
				require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0644))
				return path
			},
		},
		{
			name: "valid xlsx extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "loans.XLSX")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope.csv")
			},
			wantErr: apperrors.ErrTypeNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "loans.parquet")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			wantErr: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestValidator().ValidateInputFile(tt.setupFunc(t))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, newTestValidator().ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))
}

func TestFileValidator_ValidateJob(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "loans.csv")
	require.NoError(t, os.WriteFile(input, []byte("a\n"), 0644))
	v := newTestValidator()

	assert.NoError(t, v.ValidateJob(input, input))
	assert.NoError(t, v.ValidateJob(input, filepath.Join(dir, "cleaned", "out.csv")))

	err := v.ValidateJob(input, filepath.Join(dir, "out.xlsx"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	err = v.ValidateJob(input, filepath.Join(dir, "_temp_out.csv"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	err = v.ValidateJob(filepath.Join(dir, "missing.csv"), input)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestFileValidator_ListInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"rejected.csv", "accepted.csv", "book.xlsx", "notes.txt", "_temp_accepted.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("a\n"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	inputs, err := newTestValidator().ListInputs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "accepted.csv"),
		filepath.Join(dir, "book.xlsx"),
		filepath.Join(dir, "rejected.csv"),
	}, inputs)

	_, err = newTestValidator().ListInputs(filepath.Join(dir, "missing"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	_, err = newTestValidator().ListInputs(filepath.Join(dir, "accepted.csv"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
