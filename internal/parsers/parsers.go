// Package parsers opens source files as streams of rows regardless of format.
package parsers

import (
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/parsers/csv"
	"github.com/kosarica/import-service/internal/parsers/xlsx"
	"github.com/kosarica/import-service/internal/types"
)

// ErrUnsupportedFormat is returned for file types no reader exists for
var ErrUnsupportedFormat = errors.New("unsupported file format")

// RowReader streams the data rows of a source file. Next returns io.EOF
// after the last row.
type RowReader interface {
	Headers() []string
	Next() (types.Row, error)
	Close() error
}

// Open returns a reader for the file at path according to its declared type
func Open(path string, fileType types.FileType) (RowReader, error) {
	switch fileType {
	case types.FileTypeCSV:
		return csv.Open(path, csv.DefaultOptions())
	case types.FileTypeXLSX:
		return xlsx.Open(path, xlsx.DefaultOptions())
	case types.FileTypeXLS:
		return nil, fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileType)
	}
}
