package exporter

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	apperrors "loanprep/internal/errors"
)

const writeBufferSize = 1 << 20

// ErrHeaderWritten is returned when a second header is written to a stream
var ErrHeaderWritten = errors.New("header already written")

// ErrNoHeader is returned when rows are written before the header
var ErrNoHeader = errors.New("header not written")

// StreamWriter appends chunks to a CSV file. The header is written exactly
// once, before the first row. No BOM is written.
type StreamWriter struct {
	path          string
	file          *os.File
	buf           *bufio.Writer
	writer        *csv.Writer
	headerWritten bool
	rows          int
	closed        bool
}

// CreateStreamWriter creates (or truncates) the file at path
func CreateStreamWriter(path string) (*StreamWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to create %s", path), err).
			WithContext("path", path)
	}

	buf := bufio.NewWriterSize(file, writeBufferSize)
	return &StreamWriter{
		path:   path,
		file:   file,
		buf:    buf,
		writer: csv.NewWriter(buf),
	}, nil
}

// Path returns the file being written
func (s *StreamWriter) Path() string {
	return s.path
}

// Rows returns the number of data rows written
func (s *StreamWriter) Rows() int {
	return s.rows
}

// HeaderWritten reports whether WriteHeader has succeeded
func (s *StreamWriter) HeaderWritten() bool {
	return s.headerWritten
}

// WriteHeader writes the header line
func (s *StreamWriter) WriteHeader(header []string) error {
	if s.headerWritten {
		return ErrHeaderWritten
	}
	if err := s.writer.Write(header); err != nil {
		return apperrors.NewIOError("failed to write header", err)
	}
	s.headerWritten = true
	return nil
}

// WriteChunk appends rows in order
func (s *StreamWriter) WriteChunk(rows [][]string) error {
	if !s.headerWritten {
		return ErrNoHeader
	}
	for _, row := range rows {
		if err := s.writer.Write(row); err != nil {
			return apperrors.NewIOError(fmt.Sprintf("failed to write row %d", s.rows+1), err)
		}
		s.rows++
	}
	// surface disk errors per chunk rather than at the end
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return apperrors.NewIOError("failed to write chunk", err)
	}
	return nil
}

// Commit flushes buffered data, syncs the file to disk and closes it.
func (s *StreamWriter) Commit() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return apperrors.NewIOError("failed to flush rows", err)
	}
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return apperrors.NewIOError("failed to flush buffer", err)
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return apperrors.NewIOError("failed to sync file", err)
	}
	if err := s.file.Close(); err != nil {
		return apperrors.NewIOError("failed to close file", err)
	}
	return nil
}

// Close releases the file without flushing. It is safe after Commit.
func (s *StreamWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
