package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.99", 12.99, true},
		{"12,99", 12.99, true},
		{"1.299,00", 1299, true},
		{"1,299.00", 1299, true},
		{"1 299,50 EUR", 1299.5, true},
		{"€ 45", 45, true},
		{"19.90 kn", 19.9, true},
		{"1200", 1200, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"EUR", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDecimal(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFloatField(t *testing.T) {
	fields := map[string]any{"price": "1.299,00", "width": 120, "blank": "  ", "bad": "n/a"}

	assert.InDelta(t, 1299.0, *FloatField(fields, "price"), 1e-9)
	assert.InDelta(t, 120.0, *FloatField(fields, "width"), 1e-9)
	assert.Nil(t, FloatField(fields, "blank"))
	assert.Nil(t, FloatField(fields, "bad"))
	assert.Nil(t, FloatField(fields, "missing"))
}
