package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanprep/internal/source"
)

func TestEmptyColumns(t *testing.T) {
	header := []string{"a", "b", "c"}
	rows := [][]string{{"1", "", "NA"}, {"", "", "x"}}
	assert.Equal(t, []string{"b"}, EmptyColumns(header, rows))
	assert.Equal(t, header, EmptyColumns(header, nil))
}

func TestScanEmptiness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.csv")
	// "late" only has a value in the last chunk
	content := "id,never,late\n1,,\n2,NA,\n3,,\n4,,yes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := source.Open(path, source.Options{ChunkSize: 2})
	require.NoError(t, err)
	defer r.Close()

	scan, err := ScanEmptiness(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"never"}, scan.Empty)
	assert.Equal(t, 4, scan.Rows)
	assert.Equal(t, []Kind{KindNumeric, KindEmpty, KindText}, scan.Kinds)

	// the first chunk alone would also drop "late"
	assert.Equal(t, []string{"never", "late"}, EmptyColumns([]string{"id", "never", "late"}, [][]string{{"1", "", ""}, {"2", "NA", ""}}))
}

func TestScanEmptinessCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0644))

	r, err := source.Open(path, source.Options{ChunkSize: 2})
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ScanEmptiness(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}
