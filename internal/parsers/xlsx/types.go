package xlsx

// Options represents XLSX reader options
type Options struct {
	// Sheet selects the worksheet by name; empty means the first sheet
	// that has data
	Sheet         string `json:"sheet,omitempty"`
	SkipEmptyRows bool   `json:"skip_empty_rows,omitempty"`
}

// DefaultOptions returns default XLSX reader options
func DefaultOptions() Options {
	return Options{SkipEmptyRows: true}
}

// Worksheet describes one sheet of a workbook
type Worksheet struct {
	Name        string   `json:"name"`
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
	Headers     []string `json:"headers"`
}
