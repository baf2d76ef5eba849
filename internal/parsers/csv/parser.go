// Package csv streams rows from delimited text files, detecting their
// encoding and delimiter from a sample of the file.
package csv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kosarica/import-service/internal/parsers/charset"
	"github.com/kosarica/import-service/internal/types"
	"github.com/rs/zerolog/log"
)

// sampleSize is how much of the file is inspected for encoding and delimiter
const sampleSize = 16 * 1024

// Reader streams rows from a CSV file. The first record is the header row.
type Reader struct {
	closer   io.Closer
	csv      *csv.Reader
	options  Options
	headers  []string
	line     int
	encoding charset.Encoding
}

// Open opens a CSV file for streaming
func Open(path string, options Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	r, err := NewReader(f, options)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader detects encoding and delimiter from the head of src and reads the
// header row
func NewReader(src io.Reader, options Options) (*Reader, error) {
	buffered := bufio.NewReaderSize(src, sampleSize)
	sample, err := buffered.Peek(sampleSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read csv sample: %w", err)
	}

	if options.Encoding == "" {
		options.Encoding = charset.DetectEncoding(sample)
	}
	if options.Delimiter == "" {
		decoded, err := charset.Decode(sample, options.Encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode csv sample: %w", err)
		}
		options.Delimiter = DetectDelimiter(decoded)
	}

	var body io.Reader = buffered
	if options.Encoding == charset.EncodingUTF8 {
		body = skipBOM(buffered)
	}

	cr := csv.NewReader(charset.ToUTF8Reader(body, options.Encoding))
	cr.Comma = rune(options.Delimiter[0])
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	r := &Reader{csv: cr, options: options, encoding: options.Encoding}

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv file is empty: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	r.line = 1
	r.headers = make([]string, len(headers))
	for i, h := range headers {
		r.headers[i] = strings.TrimSpace(h)
	}

	log.Debug().
		Str("encoding", string(options.Encoding)).
		Str("delimiter", string(options.Delimiter)).
		Int("columns", len(r.headers)).
		Msg("Opened CSV file")

	return r, nil
}

// Headers returns the trimmed header row
func (r *Reader) Headers() []string {
	return r.headers
}

// Encoding returns the detected or configured encoding
func (r *Reader) Encoding() charset.Encoding {
	return r.encoding
}

// Delimiter returns the detected or configured delimiter
func (r *Reader) Delimiter() Delimiter {
	return r.options.Delimiter
}

// Next returns the next data row, or io.EOF after the last one. Row numbers
// count the header as row 1.
func (r *Reader) Next() (types.Row, error) {
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return types.Row{}, io.EOF
		}
		r.line++
		if err != nil {
			return types.Row{}, fmt.Errorf("failed to read csv row %d: %w", r.line, err)
		}

		row := types.Row{Number: r.line, Values: record}
		if r.options.SkipEmptyRows && row.IsEmpty() {
			continue
		}
		return row, nil
	}
}

// Close releases the underlying file
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func skipBOM(r *bufio.Reader) io.Reader {
	if head, err := r.Peek(3); err == nil && string(head) == "\xEF\xBB\xBF" {
		_, _ = r.Discard(3)
	}
	return r
}
