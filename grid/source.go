// Package grid reads spreadsheet workbooks into plain string grids so that
// the decoding layer never touches the spreadsheet library directly.
package grid

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrSourceUnavailable marks workbooks that cannot be opened at all, whether
// missing, unreadable or not a spreadsheet.
var ErrSourceUnavailable = errors.New("workbook unavailable")

// Source is an open workbook handle.
type Source struct {
	file *excelize.File
	path string
}

// Open opens the workbook at path. Errors wrap ErrSourceUnavailable.
func Open(path string) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	return &Source{file: f, path: path}, nil
}

// Path returns the filesystem path the source was opened from.
func (s *Source) Path() string {
	return s.path
}

// Sheets lists the sheet names in workbook order.
func (s *Source) Sheets() []string {
	return s.file.GetSheetList()
}

// Grid renders one sheet to text. Cell values carry the formatting the
// workbook displays, not the underlying typed values.
func (s *Source) Grid(sheet string) (Grid, error) {
	rows, err := s.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return Grid(rows), nil
}

// Close releases the workbook handle.
func (s *Source) Close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close workbook: %w", err)
	}
	return nil
}

// Grid is a sheet rendered to text, addressed by zero based row and column.
// Spreadsheet libraries drop trailing empty cells and rows, so access past
// the stored bounds reads as an empty cell rather than an error.
type Grid [][]string

// Cell returns the value at the given position, or "" when the position is
// outside the stored grid.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Rows returns the number of stored rows.
func (g Grid) Rows() int {
	return len(g)
}
