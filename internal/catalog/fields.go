package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kosarica/import-service/internal/types"
)

// FieldDimensionUnit carries the unit of the dimension fields on a row
const FieldDimensionUnit = "dimension_unit"

// ProductFields are the row fields that land on a product
var ProductFields = []string{
	types.FieldProductName,
	types.FieldProductSKU,
	types.FieldProductDescription,
	types.FieldBrand,
	types.FieldCategory,
}

// VariantFields are the row fields that land on a variant
var VariantFields = []string{
	types.FieldVariantSKU,
	types.FieldVariantName,
	types.FieldVariantColor,
	types.FieldVariantSize,
	types.FieldWidth,
	types.FieldDrop,
	types.FieldHeight,
	types.FieldLength,
	types.FieldDepth,
	types.FieldDiameter,
	FieldDimensionUnit,
	types.FieldWeight,
	types.FieldMadeToMeasure,
}

// ProductPatchFromFields builds a patch from the product fields present in fields
func ProductPatchFromFields(fields map[string]any) ProductPatch {
	return ProductPatch{
		Name:          StringField(fields, types.FieldProductName),
		SKU:           StringField(fields, types.FieldProductSKU),
		Description:   StringField(fields, types.FieldProductDescription),
		Brand:         StringField(fields, types.FieldBrand),
		Category:      StringField(fields, types.FieldCategory),
		MadeToMeasure: BoolField(fields, types.FieldMadeToMeasure),
	}
}

// VariantPatchFromFields builds a patch from the variant fields present in fields
func VariantPatchFromFields(fields map[string]any) VariantPatch {
	return VariantPatch{
		SKU:           StringField(fields, types.FieldVariantSKU),
		Name:          StringField(fields, types.FieldVariantName),
		Color:         StringField(fields, types.FieldVariantColor),
		Size:          StringField(fields, types.FieldVariantSize),
		Width:         FloatField(fields, types.FieldWidth),
		Drop:          FloatField(fields, types.FieldDrop),
		Height:        FloatField(fields, types.FieldHeight),
		Length:        FloatField(fields, types.FieldLength),
		Depth:         FloatField(fields, types.FieldDepth),
		Diameter:      FloatField(fields, types.FieldDiameter),
		DimensionUnit: StringField(fields, FieldDimensionUnit),
		Weight:        FloatField(fields, types.FieldWeight),
		MadeToMeasure: BoolField(fields, types.FieldMadeToMeasure),
	}
}

// ProductValue returns the stored value of a product field
func ProductValue(p *Product, field string) (any, bool) {
	switch field {
	case types.FieldProductName:
		return p.Name, true
	case types.FieldProductSKU:
		return optional(p.SKU)
	case types.FieldProductDescription:
		return optional(p.Description)
	case types.FieldBrand:
		return optional(p.Brand)
	case types.FieldCategory:
		return optional(p.Category)
	case types.FieldMadeToMeasure:
		return p.MadeToMeasure, true
	}
	return nil, false
}

// VariantValue returns the stored value of a variant field
func VariantValue(v *Variant, field string) (any, bool) {
	switch field {
	case types.FieldVariantSKU:
		return v.SKU, true
	case types.FieldVariantName:
		return optional(v.Name)
	case types.FieldVariantColor:
		return optional(v.Color)
	case types.FieldVariantSize:
		return optional(v.Size)
	case types.FieldWidth:
		return optional(v.Width)
	case types.FieldDrop:
		return optional(v.Drop)
	case types.FieldHeight:
		return optional(v.Height)
	case types.FieldLength:
		return optional(v.Length)
	case types.FieldDepth:
		return optional(v.Depth)
	case types.FieldDiameter:
		return optional(v.Diameter)
	case FieldDimensionUnit:
		return optional(v.DimensionUnit)
	case types.FieldWeight:
		return optional(v.Weight)
	case types.FieldMadeToMeasure:
		return v.MadeToMeasure, true
	}
	return nil, false
}

// ChangedFields returns the subset of fields whose value differs from the
// stored one. lookup reports the stored value of a field.
func ChangedFields(fields map[string]any, names []string, lookup func(string) (any, bool)) map[string]any {
	changed := make(map[string]any)
	for _, name := range names {
		incoming, ok := fields[name]
		if !ok || IsBlank(incoming) {
			continue
		}
		stored, ok := lookup(name)
		if ok && SameValue(incoming, stored) {
			continue
		}
		changed[name] = incoming
	}
	return changed
}

// SameValue compares two field values, treating numbers numerically and
// strings case-insensitively after trimming
func SameValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return strings.EqualFold(strings.TrimSpace(fmt.Sprint(a)), strings.TrimSpace(fmt.Sprint(b)))
}

// IsBlank reports whether a field value carries nothing
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// StringField returns a non-blank text field
func StringField(fields map[string]any, key string) *string {
	v, ok := fields[key]
	if !ok || IsBlank(v) {
		return nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	return &s
}

// FloatField returns a numeric field, parsing text when needed
func FloatField(fields map[string]any, key string) *float64 {
	v, ok := fields[key]
	if !ok || IsBlank(v) {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// BoolField returns a boolean field, accepting common spreadsheet spellings
func BoolField(fields map[string]any, key string) *bool {
	v, ok := fields[key]
	if !ok || IsBlank(v) {
		return nil
	}
	if b, ok := v.(bool); ok {
		return &b
	}
	b, ok := ParseBool(fmt.Sprint(v))
	if !ok {
		return nil
	}
	return &b
}

// ParseBool accepts true/false, yes/no, y/n and 1/0
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case *float64:
		if t == nil {
			return 0, false
		}
		return *t, true
	case string:
		return ParseDecimal(t)
	}
	return 0, false
}

var currencySuffixRe = regexp.MustCompile(`(?i)\s*(kn|kuna|hrk|eur|usd|gbp)\.?$`)

// ParseDecimal reads spreadsheet numbers in either notation: "12.99",
// "12,99", "1.299,00", "1,299.00", "1 299,00 EUR". The last separator is the
// decimal point.
func ParseDecimal(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', '\u00A0', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	cleaned = currencySuffixRe.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastDot > lastComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	return f, err == nil
}

func optional[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}
