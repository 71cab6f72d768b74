package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "loanprep/internal/errors"
)

// xlsxSource streams the first worksheet of a workbook. Blank rows are
// skipped like blank lines in CSV input.
type xlsxSource struct {
	file *excelize.File
	rows *excelize.Rows
	line int
}

func openXLSX(path string) (*xlsxSource, error) {
	fh, err := openFile(path)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(fh)
	fh.Close()
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s is not a readable workbook: %v", path, err))
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s has no worksheets", path))
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	return &xlsxSource{file: f, rows: rows}, nil
}

func (s *xlsxSource) read() ([]string, int, error) {
	for s.rows.Next() {
		s.line++
		cols, err := s.rows.Columns()
		if err != nil {
			return nil, s.line, err
		}
		if len(cols) == 0 {
			continue
		}
		return cols, s.line, nil
	}
	if err := s.rows.Error(); err != nil {
		return nil, s.line, err
	}
	return nil, s.line, io.EOF
}

// rows of a worksheet always parse
func (s *xlsxSource) rawLine(int) string {
	return ""
}

func (s *xlsxSource) close() error {
	rowsErr := s.rows.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
