package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loanprep/internal/errors"
)

func TestStreamWriter(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		chunks [][][]string
		want   string
		rows   int
	}{
		{
			name:   "header once then chunks in order",
			header: []string{"id", "amount"},
			chunks: [][][]string{
				{{"1", "10"}, {"2", "0"}},
				{{"3", "5"}},
			},
			want: "id,amount\n1,10\n2,0\n3,5\n",
			rows: 3,
		},
		{
			name:   "header only",
			header: []string{"a", "b"},
			want:   "a,b\n",
		},
		{
			name:   "fields needing quotes",
			header: []string{"desc"},
			chunks: [][][]string{{{"a,b"}, {"say \"hi\""}, {" lead"}, {"multi\nline"}}},
			want:   "desc\n\"a,b\"\n\"say \"\"hi\"\"\"\n\" lead\"\n\"multi\nline\"\n",
			rows:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.csv")
			w, err := CreateStreamWriter(path)
			require.NoError(t, err)
			defer w.Close()

			require.NoError(t, w.WriteHeader(tt.header))
			for _, chunk := range tt.chunks {
				require.NoError(t, w.WriteChunk(chunk))
			}
			require.NoError(t, w.Commit())

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(content))
			assert.Equal(t, tt.rows, w.Rows())
		})
	}
}

func TestStreamWriterHeaderRules(t *testing.T) {
	w, err := CreateStreamWriter(filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)
	defer w.Close()

	assert.ErrorIs(t, w.WriteChunk([][]string{{"1"}}), ErrNoHeader)
	require.NoError(t, w.WriteHeader([]string{"a"}))
	assert.True(t, w.HeaderWritten())
	assert.ErrorIs(t, w.WriteHeader([]string{"a"}), ErrHeaderWritten)

	require.NoError(t, w.Commit())
	// second commit and close are no-ops
	assert.NoError(t, w.Commit())
	assert.NoError(t, w.Close())
}

func TestCreateStreamWriterFailure(t *testing.T) {
	_, err := CreateStreamWriter(filepath.Join(t.TempDir(), "missing", "out.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIO))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, WriteReport(path, map[string]int{"rows": 3}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":3}`, string(content))
}
