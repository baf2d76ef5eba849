package catalog

import (
	"errors"
	"regexp"
)

// Barcode types stored alongside codes
const (
	BarcodeTypeEAN13    = "EAN13"
	BarcodeTypeEAN8     = "EAN8"
	BarcodeTypeInternal = "INTERNAL"
)

var (
	ErrBarcodePlaceholder    = errors.New("placeholder barcode")
	ErrBarcodeVariableWeight = errors.New("variable-weight barcode")
	ErrBarcodeCheckDigit     = errors.New("invalid barcode check digit")
)

var (
	nonDigitRe       = regexp.MustCompile(`[^0-9]`)
	placeholderRe    = regexp.MustCompile(`^0+$`)
	variableWeightRe = regexp.MustCompile(`^2[0-9]`) // EAN-13 prefix 20-29
)

// CheckBarcode normalizes a raw barcode and reports why it is unusable.
// UPC-A (12 digits) is widened to EAN-13. Codes that are neither 8 nor 13
// digits after normalization are kept as internal codes.
func CheckBarcode(raw string) (string, error) {
	bc := nonDigitRe.ReplaceAllString(raw, "")
	if bc == "" {
		return "", nil
	}

	if placeholderRe.MatchString(bc) {
		return "", ErrBarcodePlaceholder
	}

	// UPC-A -> EAN-13
	if len(bc) == 12 {
		bc = "0" + bc
	}

	switch len(bc) {
	case 13:
		if variableWeightRe.MatchString(bc) {
			return "", ErrBarcodeVariableWeight
		}
		if !validateCheckDigit(bc) {
			return "", ErrBarcodeCheckDigit
		}
	case 8:
		if !validateCheckDigit(bc) {
			return "", ErrBarcodeCheckDigit
		}
	}
	return bc, nil
}

// NormalizeBarcode returns the normalized code, or an empty string for
// placeholder and invalid barcodes that should be skipped
func NormalizeBarcode(raw string) string {
	bc, err := CheckBarcode(raw)
	if err != nil {
		return ""
	}
	return bc
}

// BarcodeType names the symbology of a normalized code
func BarcodeType(code string) string {
	switch len(code) {
	case 13:
		return BarcodeTypeEAN13
	case 8:
		return BarcodeTypeEAN8
	}
	return BarcodeTypeInternal
}

// validateCheckDigit validates the GS1 mod-10 check digit of an EAN-8 or EAN-13
func validateCheckDigit(bc string) bool {
	n := len(bc)
	if n != 8 && n != 13 {
		return false
	}
	sum := 0
	// weights alternate 3,1 from the digit left of the check digit
	for i := n - 2; i >= 0; i-- {
		d := int(bc[i] - '0')
		if (n-2-i)%2 == 0 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	checkDigit := (10 - (sum % 10)) % 10
	return int(bc[n-1]-'0') == checkDigit
}
