package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"loanprep/internal/config"
	apperrors "loanprep/internal/errors"
)

const utf8BOM = "\ufeff"

// Chunk is a bounded, ordered slice of a dataset's rows.
type Chunk struct {
	Index     int        // 0-based position in the sequence
	FirstLine int        // 1-based source line of the first row
	Header    []string   // selected columns, header order
	Rows      [][]string // each row aligned with Header
}

// Len returns the number of rows in the chunk
func (c *Chunk) Len() int {
	return len(c.Rows)
}

// MalformedRow describes one skipped record.
type MalformedRow struct {
	Line    int    `json:"line"`
	Fields  int    `json:"fields"`
	Snippet string `json:"snippet"`
	Reason  string `json:"reason"`
}

// MalformedStats counts skipped records and keeps the first few as samples.
type MalformedStats struct {
	Count   int            `json:"count"`
	Samples []MalformedRow `json:"samples,omitempty"`
}

// Options configures a Reader
type Options struct {
	ChunkSize   int
	KeepColumns []string
	// Malformed is config.MalformedSkip (default) or config.MalformedFail
	Malformed   string
	SampleLimit int
	Logger      *slog.Logger
}

// Reader yields the chunks of one file.
type Reader interface {
	// Header returns the selected columns in header order.
	Header() []string
	// SourceHeader returns every column of the file.
	SourceHeader() []string
	// Next returns the next chunk, or io.EOF when the input is exhausted.
	Next(ctx context.Context) (*Chunk, error)
	// RowsRead is the number of well-formed data rows returned so far.
	RowsRead() int
	Malformed() MalformedStats
	Close() error
}

// recordSource is the format-specific part of a Reader.
type recordSource interface {
	// read returns the next record and its 1-based line number.
	read() (record []string, line int, err error)
	// rawLine returns the text of a physical line, for samples of records
	// that could not be parsed.
	rawLine(line int) string
	close() error
}

// Open opens path and reads its header. Files ending in .xlsx are read from
// the first worksheet, everything else as comma-separated text.
func Open(path string, opts Options) (Reader, error) {
	if opts.ChunkSize <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("chunk size must be positive, got %d", opts.ChunkSize))
	}
	if opts.Malformed == "" {
		opts.Malformed = config.MalformedSkip
	}
	if opts.Malformed != config.MalformedSkip && opts.Malformed != config.MalformedFail {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown malformed row policy %q", opts.Malformed))
	}
	if opts.SampleLimit < 0 {
		opts.SampleLimit = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var (
		src      recordSource
		padShort bool
		err      error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		src, err = openXLSX(path)
		padShort = true
	} else {
		src, err = openCSV(path)
	}
	if err != nil {
		return nil, err
	}

	r := &chunkReader{
		src:      src,
		opts:     opts,
		padShort: padShort,
		logger:   opts.Logger.With(slog.String("component", "chunk_reader"), slog.String("path", path)),
	}
	if err := r.readHeader(); err != nil {
		src.close()
		return nil, err
	}
	return r, nil
}

// openFile maps a missing path to a NotFound error
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(path, err)
		}
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to open %s", path), err)
	}
	return f, nil
}

type csvSource struct {
	path string
	file *os.File
	r    *csv.Reader
}

func openCSV(path string) (*csvSource, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	// field counts are checked against the header by chunkReader
	r.FieldsPerRecord = -1
	// a stray quote inside an unquoted field is kept as text
	r.LazyQuotes = true
	return &csvSource{path: path, file: f, r: r}, nil
}

func (s *csvSource) read() ([]string, int, error) {
	record, err := s.r.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, pe.StartLine, err
		}
		return nil, 0, err
	}
	line, _ := s.r.FieldPos(0)
	return record, line, nil
}

// rawLine rescans the file from the start. It only runs for records kept
// as samples, so the main read loop pays nothing for it.
func (s *csvSource) rawLine(line int) string {
	f, err := os.Open(s.path)
	if err != nil {
		return ""
	}
	defer f.Close()

	limit := 4 * config.SnippetLength
	br := bufio.NewReader(f)
	var buf []byte
	for n := 1; ; {
		part, err := br.ReadSlice('\n')
		if n == line && len(buf) < limit {
			buf = append(buf, part...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if n == line || err != nil {
			break
		}
		n++
	}
	if len(buf) > limit {
		buf = buf[:limit]
	}
	return strings.TrimRight(string(buf), "\r\n")
}

func (s *csvSource) close() error {
	return s.file.Close()
}

type chunkReader struct {
	src      recordSource
	opts     Options
	padShort bool
	logger   *slog.Logger

	sourceHeader []string
	header       []string
	selected     []int // indices into sourceHeader, nil means all

	index     int
	rowsRead  int
	malformed MalformedStats
	done      bool
}

func (r *chunkReader) readHeader() error {
	record, _, err := r.src.read()
	if errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("empty file: no header row")
	}
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("unreadable header: %v", err))
	}

	header := append([]string(nil), record...)
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	seen := make(map[string]bool, len(header))
	var dups []string
	for _, name := range header {
		if seen[name] {
			dups = append(dups, name)
		}
		seen[name] = true
	}
	if len(dups) > 0 {
		return apperrors.NewValidationError(fmt.Sprintf("duplicate column names in header: %s", strings.Join(dups, ", "))).
			WithContext("columns", dups)
	}
	r.sourceHeader = header

	if len(r.opts.KeepColumns) == 0 {
		r.header = header
		return nil
	}

	keep := make(map[string]bool, len(r.opts.KeepColumns))
	for _, name := range r.opts.KeepColumns {
		keep[name] = true
	}
	var missing []string
	for name := range keep {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperrors.NewValidationError(fmt.Sprintf("columns not in header: %s", strings.Join(missing, ", "))).
			WithContext("columns", missing)
	}

	for i, name := range header {
		if keep[name] {
			r.selected = append(r.selected, i)
			r.header = append(r.header, name)
		}
	}
	return nil
}

func (r *chunkReader) Header() []string {
	return append([]string(nil), r.header...)
}

func (r *chunkReader) SourceHeader() []string {
	return append([]string(nil), r.sourceHeader...)
}

func (r *chunkReader) RowsRead() int {
	return r.rowsRead
}

func (r *chunkReader) Malformed() MalformedStats {
	stats := r.malformed
	stats.Samples = append([]MalformedRow(nil), r.malformed.Samples...)
	return stats
}

func (r *chunkReader) Close() error {
	return r.src.close()
}

func (r *chunkReader) Next(ctx context.Context) (*Chunk, error) {
	if r.done {
		return nil, io.EOF
	}

	chunk := &Chunk{Index: r.index, Header: r.Header()}
	for len(chunk.Rows) < r.opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, line, err := r.src.read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				raw := ""
				if r.keepsSample() {
					raw = r.src.rawLine(line)
				}
				if ferr := r.reject(line, 0, raw, pe.Err.Error(), err); ferr != nil {
					return nil, ferr
				}
				continue
			}
			return nil, apperrors.NewIOError("failed to read input", err)
		}

		want := len(r.sourceHeader)
		if r.padShort && len(record) < want {
			record = append(record, make([]string, want-len(record))...)
		}
		if len(record) != want {
			if ferr := r.reject(line, len(record), strings.Join(record, ","), "field count mismatch", nil); ferr != nil {
				return nil, ferr
			}
			continue
		}

		if len(chunk.Rows) == 0 {
			chunk.FirstLine = line
		}
		chunk.Rows = append(chunk.Rows, r.project(record))
		r.rowsRead++
	}

	if len(chunk.Rows) == 0 {
		return nil, io.EOF
	}
	r.index++
	return chunk, nil
}

// project returns the selected fields of record
func (r *chunkReader) project(record []string) []string {
	if r.selected == nil {
		return record
	}
	row := make([]string, len(r.selected))
	for i, idx := range r.selected {
		row[i] = record[idx]
	}
	return row
}

// keepsSample reports whether the next rejected row becomes an error or a
// stored sample.
func (r *chunkReader) keepsSample() bool {
	return r.opts.Malformed == config.MalformedFail || len(r.malformed.Samples) < r.opts.SampleLimit
}

// reject records a malformed row, or returns an error under the fail policy.
func (r *chunkReader) reject(line, fields int, raw, reason string, cause error) error {
	if r.opts.Malformed == config.MalformedFail {
		if cause != nil {
			return apperrors.NewAppError(apperrors.ErrTypeMalformedRow,
				fmt.Sprintf("line %d: %s", line, reason), cause).
				WithContext("line", line).
				WithContext("snippet", Snippet(raw, config.SnippetLength))
		}
		return apperrors.NewMalformedRowError(line, fields, len(r.sourceHeader))
	}

	r.malformed.Count++
	if len(r.malformed.Samples) < r.opts.SampleLimit {
		r.malformed.Samples = append(r.malformed.Samples, MalformedRow{
			Line:    line,
			Fields:  fields,
			Snippet: Snippet(raw, config.SnippetLength),
			Reason:  reason,
		})
	}
	r.logger.Debug("Skipping malformed row",
		slog.Int("line", line),
		slog.Int("fields", fields),
		slog.Int("expected_fields", len(r.sourceHeader)),
		slog.String("reason", reason))
	return nil
}

// Snippet truncates s to at most n runes
func Snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
