// Package xlsx streams rows from Excel workbooks.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/import-service/internal/types"
)

// ErrNoData is returned when no worksheet has a header row
var ErrNoData = errors.New("workbook has no worksheet with data")

// Reader streams rows from one worksheet. The first non-empty row is the
// header row.
type Reader struct {
	file    *excelize.File
	rows    *excelize.Rows
	options Options
	sheet   string
	headers []string
	line    int
}

// Open opens a workbook and positions the reader after the header row of the
// selected sheet
func Open(path string, options Options) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheet, err := selectSheet(f, options.Sheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheet, err)
	}

	r := &Reader{file: f, rows: rows, options: options, sheet: sheet}
	for r.headers == nil {
		values, err := r.next()
		if err != nil {
			r.Close()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("worksheet %q: %w", sheet, ErrNoData)
			}
			return nil, err
		}
		if !(types.Row{Values: values}).IsEmpty() {
			r.headers = trimAll(values)
		}
	}

	log.Debug().
		Str("sheet", sheet).
		Int("columns", len(r.headers)).
		Msg("Opened workbook")

	return r, nil
}

// Headers returns the trimmed header row
func (r *Reader) Headers() []string {
	return r.headers
}

// Sheet returns the name of the worksheet being read
func (r *Reader) Sheet() string {
	return r.sheet
}

// Next returns the next data row, or io.EOF after the last one. Row numbers
// are the spreadsheet's own row numbers.
func (r *Reader) Next() (types.Row, error) {
	for {
		values, err := r.next()
		if err != nil {
			return types.Row{}, err
		}
		row := types.Row{Number: r.line, Values: values}
		if r.options.SkipEmptyRows && row.IsEmpty() {
			continue
		}
		return row, nil
	}
}

// Close releases the worksheet iterator and the workbook
func (r *Reader) Close() error {
	var errs []error
	if r.rows != nil {
		errs = append(errs, r.rows.Close())
	}
	errs = append(errs, r.file.Close())
	return errors.Join(errs...)
}

func (r *Reader) next() ([]string, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, fmt.Errorf("failed to read worksheet %q: %w", r.sheet, err)
		}
		return nil, io.EOF
	}
	r.line++
	values, err := r.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d of %q: %w", r.line, r.sheet, err)
	}
	return values, nil
}

// Worksheets describes every sheet of a workbook: its header row and the
// number of data rows below it
func Worksheets(path string) ([]Worksheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := make([]Worksheet, 0, len(f.GetSheetList()))
	for _, name := range f.GetSheetList() {
		ws, err := describeSheet(f, name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, ws)
	}
	return sheets, nil
}

func describeSheet(f *excelize.File, name string) (Worksheet, error) {
	ws := Worksheet{Name: name}
	rows, err := f.Rows(name)
	if err != nil {
		return ws, fmt.Errorf("failed to read worksheet %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Columns()
		if err != nil {
			return ws, fmt.Errorf("failed to read worksheet %q: %w", name, err)
		}
		if (types.Row{Values: values}).IsEmpty() {
			continue
		}
		if ws.Headers == nil {
			ws.Headers = trimAll(values)
			ws.ColumnCount = len(values)
			continue
		}
		ws.RowCount++
		if len(values) > ws.ColumnCount {
			ws.ColumnCount = len(values)
		}
	}
	return ws, rows.Error()
}

// selectSheet picks the named sheet, or the first sheet that has any rows
func selectSheet(f *excelize.File, name string) (string, error) {
	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	if name != "" {
		for _, s := range sheetList {
			if s == name {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found. Available sheets: %s", name, strings.Join(sheetList, ", "))
	}

	for _, s := range sheetList {
		if dim, err := f.GetSheetDimension(s); err == nil && dim != "" && dim != "A1" {
			return s, nil
		}
	}
	return sheetList[0], nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
