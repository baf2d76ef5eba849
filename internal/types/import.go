package types

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType represents supported source file types
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
)

// FileTypeFromName infers the declared file type from a filename extension
func FileTypeFromName(name string) (FileType, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv", "txt":
		return FileTypeCSV, true
	case "xlsx", "xlsm":
		return FileTypeXLSX, true
	case "xls":
		return FileTypeXLS, true
	default:
		return "", false
	}
}

// Row is one data row read from a source file. Number is 1-based and counts
// the header row, so it matches what a user sees in a spreadsheet.
type Row struct {
	Number int      `json:"number"`
	Values []string `json:"values"`
}

// IsEmpty reports whether every cell in the row is blank
func (r Row) IsEmpty() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Canonical field names a column can be mapped to
const (
	FieldProductName        = "product_name"
	FieldProductSKU         = "product_sku"
	FieldProductDescription = "product_description"
	FieldBrand              = "brand"
	FieldCategory           = "category"
	FieldVariantSKU         = "variant_sku"
	FieldVariantName        = "variant_name"
	FieldVariantColor       = "variant_color"
	FieldVariantSize        = "variant_size"
	FieldWidth              = "width"
	FieldDrop               = "drop"
	FieldHeight             = "height"
	FieldLength             = "length"
	FieldDepth              = "depth"
	FieldDiameter           = "diameter"
	FieldWeight             = "weight"
	FieldBarcode            = "barcode"
	FieldBarcodeType        = "barcode_type"
	FieldRetailPrice        = "retail_price"
	FieldTradePrice         = "trade_price"
	FieldCostPrice          = "cost_price"
	FieldSalePrice          = "sale_price"
	FieldMadeToMeasure      = "made_to_measure"
)

// CanonicalFields lists every field a column mapping may target
var CanonicalFields = []string{
	FieldProductName,
	FieldProductSKU,
	FieldProductDescription,
	FieldBrand,
	FieldCategory,
	FieldVariantSKU,
	FieldVariantName,
	FieldVariantColor,
	FieldVariantSize,
	FieldWidth,
	FieldDrop,
	FieldHeight,
	FieldLength,
	FieldDepth,
	FieldDiameter,
	FieldWeight,
	FieldBarcode,
	FieldBarcodeType,
	FieldRetailPrice,
	FieldTradePrice,
	FieldCostPrice,
	FieldSalePrice,
	FieldMadeToMeasure,
}

// PriceFieldPrefix marks a free-form channel price column, e.g. price_amazon
const PriceFieldPrefix = "price_"

// IsCanonicalField reports whether name is a known mapping target
func IsCanonicalField(name string) bool {
	if strings.HasPrefix(name, PriceFieldPrefix) && len(name) > len(PriceFieldPrefix) {
		return true
	}
	for _, f := range CanonicalFields {
		if f == name {
			return true
		}
	}
	return false
}

// DimensionFields are the variant fields holding physical measurements
var DimensionFields = []string{FieldWidth, FieldDrop, FieldHeight, FieldLength, FieldDepth, FieldDiameter}

// IsDimensionField reports whether the field holds a physical measurement
func IsDimensionField(name string) bool {
	for _, f := range DimensionFields {
		if f == name {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int
func IntPtr(i int) *int {
	return &i
}

// Float64Ptr returns a pointer to the given float64
func Float64Ptr(f float64) *float64 {
	return &f
}

// TimePtr returns a pointer to the given time
func TimePtr(t time.Time) *time.Time {
	return &t
}
