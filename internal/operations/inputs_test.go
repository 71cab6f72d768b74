package operations_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loanprep/internal/errors"
	"loanprep/internal/operations"
	"loanprep/internal/validation"
)

func TestInputJobs(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0755))
	accepted := writeInput(t, data, "accepted.csv", "a\n1\n")
	rejected := writeInput(t, data, "rejected.xlsx", "")
	writeInput(t, data, "_temp_accepted.csv", "a\n")
	writeInput(t, data, "notes.txt", "x")

	base := operations.Job{ChunkSize: 100, KeepColumns: []string{"a"}}
	v := validation.NewFileValidator(testLogger())

	tests := []struct {
		name    string
		input   string
		output  string
		want    [][2]string
		wantErr apperrors.ErrorType
	}{
		{
			name:  "csv file in place",
			input: accepted,
			want:  [][2]string{{accepted, ""}},
		},
		{
			name:   "csv file to output",
			input:  accepted,
			output: filepath.Join(dir, "out.csv"),
			want:   [][2]string{{accepted, filepath.Join(dir, "out.csv")}},
		},
		{
			name:  "xlsx file next to itself",
			input: rejected,
			want:  [][2]string{{rejected, filepath.Join(data, "rejected.csv")}},
		},
		{
			name:  "directory in place",
			input: data,
			want: [][2]string{
				{accepted, ""},
				{rejected, filepath.Join(data, "rejected.csv")},
			},
		},
		{
			name:   "directory to directory",
			input:  data,
			output: filepath.Join(dir, "cleaned"),
			want: [][2]string{
				{accepted, filepath.Join(dir, "cleaned", "accepted.csv")},
				{rejected, filepath.Join(dir, "cleaned", "rejected.csv")},
			},
		},
		{
			name:    "directory to file",
			input:   data,
			output:  filepath.Join(dir, "out.csv"),
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name:    "missing input",
			input:   filepath.Join(dir, "missing"),
			wantErr: apperrors.ErrTypeNotFound,
		},
		{
			name:    "directory without inputs",
			input:   t.TempDir(),
			wantErr: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := operations.InputJobs(v, tt.input, tt.output, base)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)

			var got [][2]string
			for _, job := range jobs {
				got = append(got, [2]string{job.InputPath, job.OutputPath})
				assert.Equal(t, 100, job.ChunkSize)
				assert.Equal(t, []string{"a"}, job.KeepColumns)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
