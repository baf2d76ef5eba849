package parsers

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/import-service/internal/types"
)

func readAll(t *testing.T, r RowReader) []types.Row {
	t.Helper()
	var rows []types.Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestOpen_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	content := "\xEF\xBB\xBFProduct Name;SKU;Price\nRoller Blind;RB-001;19,99\n;;\n\"Roman; Blind\";RM-001;25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Open(path, types.FileTypeCSV)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"Product Name", "SKU", "Price"}, r.Headers())
	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, types.Row{Number: 2, Values: []string{"Roller Blind", "RB-001", "19,99"}}, rows[0])
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, "Roman; Blind", rows[1].Values[0])
}

func TestOpen_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Product Name", "Variant SKU"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Roller Blind", "RB-001"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Roller Blind", "RB-002"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, err := Open(path, types.FileTypeXLSX)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"Product Name", "Variant SKU"}, r.Headers())
	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[1].Number)
	assert.Equal(t, "RB-002", rows[1].Values[1])
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open("legacy.xls", types.FileTypeXLS)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open("data.json", types.FileType("json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpen_CorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Open(path, types.FileTypeXLSX)
	assert.Error(t, err)
}
