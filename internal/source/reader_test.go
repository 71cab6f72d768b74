package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"loanprep/internal/config"
	apperrors "loanprep/internal/errors"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// readAll drains r and returns every chunk
func readAll(t *testing.T, r Reader) []*Chunk {
	t.Helper()
	var chunks []*Chunk
	for {
		c, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		opts    Options
		wantErr apperrors.ErrorType
	}{
		{
			name:    "missing file",
			opts:    Options{ChunkSize: 10},
			wantErr: apperrors.ErrTypeNotFound,
		},
		{
			name:    "empty file",
			content: ptr(""),
			opts:    Options{ChunkSize: 10},
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name:    "duplicate header",
			content: ptr("a,b,a\n1,2,3\n"),
			opts:    Options{ChunkSize: 10},
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name:    "unknown keep column",
			content: ptr("a,b\n1,2\n"),
			opts:    Options{ChunkSize: 10, KeepColumns: []string{"a", "zzz"}},
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name:    "zero chunk size",
			content: ptr("a\n1\n"),
			opts:    Options{ChunkSize: 0},
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name:    "unknown policy",
			content: ptr("a\n1\n"),
			opts:    Options{ChunkSize: 1, Malformed: "ignore"},
			wantErr: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.csv")
			if tt.content != nil {
				path = writeCSV(t, *tt.content)
			}
			_, err := Open(path, tt.opts)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
		})
	}
}

func ptr(s string) *string { return &s }

func TestChunking(t *testing.T) {
	path := writeCSV(t, "id,amount\n1,10\n2,\n3,5\n4,7\n5,1\n")

	r, err := Open(path, Options{ChunkSize: 2})
	require.NoError(t, err)
	defer r.Close()

	chunks := readAll(t, r)
	require.Len(t, chunks, 3)

	assert.Equal(t, []int{2, 2, 1}, []int{chunks[0].Len(), chunks[1].Len(), chunks[2].Len()})
	assert.Equal(t, []int{0, 1, 2}, []int{chunks[0].Index, chunks[1].Index, chunks[2].Index})
	assert.Equal(t, []int{2, 4, 6}, []int{chunks[0].FirstLine, chunks[1].FirstLine, chunks[2].FirstLine})
	assert.Equal(t, []string{"id", "amount"}, chunks[0].Header)
	assert.Equal(t, []string{"2", ""}, chunks[0].Rows[1])
	assert.Equal(t, 5, r.RowsRead())

	// exhausted readers keep returning EOF
	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestHeaderOnlyFile(t *testing.T) {
	path := writeCSV(t, "a,b\n")
	r, err := Open(path, Options{ChunkSize: 10})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"a", "b"}, r.Header())
	assert.Empty(t, readAll(t, r))
}

func TestBOMIsStripped(t *testing.T) {
	path := writeCSV(t, "\ufeffid,name\n1,x\n")
	r, err := Open(path, Options{ChunkSize: 10})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"id", "name"}, r.Header())
}

func TestKeepColumnsFollowHeaderOrder(t *testing.T) {
	path := writeCSV(t, "a,b,c,d\n1,2,3,4\n")
	r, err := Open(path, Options{ChunkSize: 10, KeepColumns: []string{"d", "b"}})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"b", "d"}, r.Header())
	assert.Equal(t, []string{"a", "b", "c", "d"}, r.SourceHeader())
	chunks := readAll(t, r)
	require.Len(t, chunks, 1)
	assert.Equal(t, [][]string{{"2", "4"}}, chunks[0].Rows)
}

func TestMalformedRowsSkipped(t *testing.T) {
	long := strings.Repeat("x", 400)
	content := "a,b\n1,2\n3,4,5\n6\n7,8\n" + long + ",1,2\n9,x,y,z\n10,11\n"
	path := writeCSV(t, content)

	r, err := Open(path, Options{ChunkSize: 100, SampleLimit: 3})
	require.NoError(t, err)
	defer r.Close()

	chunks := readAll(t, r)
	require.Len(t, chunks, 1)
	assert.Equal(t, [][]string{{"1", "2"}, {"7", "8"}, {"10", "11"}}, chunks[0].Rows)

	stats := r.Malformed()
	assert.Equal(t, 4, stats.Count)
	require.Len(t, stats.Samples, 3)
	assert.Equal(t, MalformedRow{Line: 3, Fields: 3, Snippet: "3,4,5", Reason: "field count mismatch"}, stats.Samples[0])
	assert.Equal(t, 4, stats.Samples[1].Line)
	assert.Equal(t, 1, stats.Samples[1].Fields)
	assert.Equal(t, 6, stats.Samples[2].Line)
	assert.Len(t, stats.Samples[2].Snippet, config.SnippetLength)
}

func TestMalformedRowFailPolicy(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n3\n")
	r, err := Open(path, Options{ChunkSize: 100, Malformed: config.MalformedFail})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedRow))
	assert.Contains(t, err.Error(), "line 3 has 1 fields, header has 2")
}

func TestQuotedFieldsWithNewlines(t *testing.T) {
	path := writeCSV(t, "id,desc\n1,\"multi\nline\"\n2,plain\n")
	r, err := Open(path, Options{ChunkSize: 100})
	require.NoError(t, err)
	defer r.Close()

	chunks := readAll(t, r)
	require.Len(t, chunks, 1)
	assert.Equal(t, "multi\nline", chunks[0].Rows[0][1])
	assert.Equal(t, 0, r.Malformed().Count)
}

func TestNextHonorsCancellation(t *testing.T) {
	path := writeCSV(t, "a\n1\n2\n")
	r, err := Open(path, Options{ChunkSize: 1})
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestXLSXReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "amount", "note"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1, 10, "ok"}))
	// trailing blank cell is dropped by the workbook and padded back
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{2, 20}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{3, 30, "x", "extra"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, err := Open(path, Options{ChunkSize: 10})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"id", "amount", "note"}, r.Header())
	chunks := readAll(t, r)
	require.Len(t, chunks, 1)
	assert.Equal(t, [][]string{{"1", "10", "ok"}, {"2", "20", ""}}, chunks[0].Rows)
	assert.Equal(t, 1, r.Malformed().Count)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", Snippet("abc", 5))
	assert.Equal(t, "ab", Snippet("abc", 2))
	assert.Equal(t, "éé", Snippet("ééé", 2))
}

func TestBareQuoteInUnquotedField(t *testing.T) {
	path := writeCSV(t, "id,title\n1,5\" screen\n2,x\n")
	r, err := Open(path, Options{ChunkSize: 100, Malformed: config.MalformedFail})
	require.NoError(t, err)
	defer r.Close()

	chunks := readAll(t, r)
	require.Len(t, chunks, 1)
	assert.Equal(t, [][]string{{"1", "5\" screen"}, {"2", "x"}}, chunks[0].Rows)
	assert.Equal(t, 0, r.Malformed().Count)
	assert.Equal(t, 2, r.RowsRead())
}

func TestCSVSourceRawLine(t *testing.T) {
	long := strings.Repeat("y", 5000)
	path := writeCSV(t, "a,b\r\n1,2\r\n" + long + "\n3,4")
	src, err := openCSV(path)
	require.NoError(t, err)
	defer src.close()

	assert.Equal(t, "a,b", src.rawLine(1))
	assert.Equal(t, "1,2", src.rawLine(2))
	assert.Len(t, src.rawLine(3), 4*config.SnippetLength)
	assert.Equal(t, "3,4", src.rawLine(4))
	assert.Equal(t, "", src.rawLine(9))
}
