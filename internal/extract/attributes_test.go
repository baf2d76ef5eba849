package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractColors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expected   []string
		confidence float64
	}{
		{"Blackout is not black", "Blackout Blind", []string{}, 0},
		{"Bluetooth is not blue", "Bluetooth Speaker", []string{}, 0},
		{"Compound color wins", "Navy Blue Cushion", []string{"navy blue"}, 0.9},
		{"Two colors in order", "Black and White Rug", []string{"black", "white"}, 0.9},
		{"Synonym is partial", "Gray throw", []string{"grey"}, 0.7},
		{"Plural is partial", "Assorted greys", []string{"grey"}, 0.7},
		{"Duplicates collapse", "Red stripe, red trim", []string{"red"}, 0.9},
		{"Nothing", "Roller mechanism", []string{}, 0},
	}

	e := NewAttributeExtractor(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.ExtractColors(tt.input)
			assert.Equal(t, tt.expected, result.Values)
			assert.InDelta(t, tt.confidence, result.Confidence, 0.001)
		})
	}
}

func TestExtractColorsExactOutranksPartial(t *testing.T) {
	e := NewAttributeExtractor(false)

	exact := e.ExtractColors("grey sofa")
	partial := e.ExtractColors("gray sofa")

	assert.Greater(t, exact.Confidence, partial.Confidence)
}

func TestExtractSizes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Word size", "T-Shirt Large", []string{"large"}},
		{"Multi-word size", "Super King Duvet", []string{"super king"}},
		{"Letter code", "XL Hoodie", []string{"XL"}},
		{"Upper-case single letter", "Tee S", []string{"S"}},
		{"Lower-case single letter ignored", "pack of s", []string{}},
		{"Letter after size label", "Jumper size m", []string{"M"}},
		{"Numeric after size label", "Dress size: 12", []string{"12"}},
		{"Nothing", "Oak table", []string{}},
	}

	e := NewAttributeExtractor(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ExtractSizes(tt.input).Values)
		})
	}
}

func TestExtractAll(t *testing.T) {
	e := NewAttributeExtractor(false)

	all := e.ExtractAll("Made to measure Navy Blue blind, Width: 150cm, Drop: 200cm")

	assert.Equal(t, []string{"navy blue"}, all.Colors.Values)
	assert.Equal(t, "navy blue", all.Colors.First())
	assert.False(t, all.Sizes.Found())
	assert.True(t, all.MadeToMeasure.IsMadeToMeasure)
	require.True(t, all.Dimensions.FoundDimensions)
	assert.Equal(t, 150.0, *all.Dimensions.Dimensions.Width)
}

func TestTokenLookups(t *testing.T) {
	assert.True(t, IsColorToken("RED"))
	assert.True(t, IsColorToken("gray"))
	assert.False(t, IsColorToken("blackout"))
	assert.True(t, IsSizeToken("xl"))
	assert.True(t, IsSizeToken("M"))
	assert.False(t, IsSizeToken("001"))
}
