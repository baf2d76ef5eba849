package csv

import "github.com/kosarica/import-service/internal/parsers/charset"

// Delimiter represents supported CSV delimiters
type Delimiter string

const (
	DelimiterComma     Delimiter = ","
	DelimiterSemicolon Delimiter = ";"
	DelimiterTab       Delimiter = "\t"
	DelimiterPipe      Delimiter = "|"
)

// Options represents CSV reader options. Zero values are detected from the file.
type Options struct {
	Delimiter     Delimiter        `json:"delimiter,omitempty"`
	Encoding      charset.Encoding `json:"encoding,omitempty"`
	SkipEmptyRows bool             `json:"skip_empty_rows,omitempty"`
}

// DefaultOptions returns default CSV reader options
func DefaultOptions() Options {
	return Options{SkipEmptyRows: true}
}
