package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kosarica/import-service/internal/session"
)

// ErrReportNotReady is returned when a report is requested before Finalize
var ErrReportNotReady = errors.New("import report not ready")

// WriteReportJSON writes the comprehensive report of a finalized session
func WriteReportJSON(w io.Writer, s *session.ImportSession) error {
	if s.FinalResult == nil {
		return ErrReportNotReady
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.FinalResult.Report)
}

// WriteErrorsCSV writes the session errors as row,message,timestamp.
// Session-level errors have an empty row. Messages that a spreadsheet would
// read as a formula are prefixed with a single quote.
func WriteErrorsCSV(w io.Writer, s *session.ImportSession) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "message", "timestamp"}); err != nil {
		return err
	}
	for _, e := range s.Errors {
		row := ""
		if e.Row != nil {
			row = strconv.Itoa(*e.Row)
		}
		if err := cw.Write([]string{row, spreadsheetSafe(e.Message), e.Timestamp.Format(time.RFC3339)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// spreadsheetSafe quotes a cell that starts with a formula trigger
func spreadsheetSafe(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
