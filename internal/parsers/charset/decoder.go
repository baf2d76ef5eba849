// Package charset detects and decodes the legacy encodings spreadsheet tools
// still export CSV files in.
package charset

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingISO88592    Encoding = "iso-8859-2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Bytes that only occur as letters in Windows-1250 and fall in the C1 control
// range of ISO-8859-2 (Š š Ž ž Ś ś Ź ź Ť ť)
var windows1250Only = map[byte]bool{
	0x8A: true, 0x9A: true, 0x8E: true, 0x9E: true,
	0x8C: true, 0x9C: true, 0x8F: true, 0x9F: true,
	0x8D: true, 0x9D: true,
}

// DetectEncoding guesses the encoding of a sample of the file
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) {
		return EncodingUTF8
	}
	// a sample cut mid-rune is still UTF-8
	if utf8.Valid(trimPartialRune(data)) {
		return EncodingUTF8
	}

	for _, b := range data {
		if windows1250Only[b] {
			return EncodingWindows1250
		}
	}
	for _, b := range data {
		if b >= 0x80 && b < 0xA0 {
			return EncodingWindows1250
		}
	}
	return EncodingISO88592
}

// Decode converts a byte buffer from the specified encoding to a UTF-8 string
func Decode(data []byte, enc Encoding) (string, error) {
	data = StripBOM(data)
	if enc == EncodingUTF8 || enc == "" || utf8.Valid(data) {
		return string(data), nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoderFor(enc).NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ToUTF8Reader wraps a reader with a decoder to convert to UTF-8
func ToUTF8Reader(r io.Reader, enc Encoding) io.Reader {
	switch enc {
	case EncodingWindows1250, EncodingISO88592:
		return transform.NewReader(r, decoderFor(enc).NewDecoder())
	default:
		return r
	}
}

// StripBOM removes a leading UTF-8 byte order mark
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func decoderFor(enc Encoding) encoding.Encoding {
	if enc == EncodingISO88592 {
		return charmap.ISO8859_2
	}
	return charmap.Windows1250
}

// trimPartialRune drops up to three trailing bytes of an incomplete rune
func trimPartialRune(data []byte) []byte {
	for i := 0; i < 3 && len(data) > 0; i++ {
		r, size := utf8.DecodeLastRune(data)
		if r != utf8.RuneError || size != 1 {
			break
		}
		data = data[:len(data)-1]
	}
	return data
}
