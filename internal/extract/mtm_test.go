package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMadeToMeasureExtract(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expected   bool
		confidence float64
		indicators []string
	}{
		{"Exact phrase", "Made to Measure Roller Blind", true, 0.9, []string{"made to measure"}},
		{"Hyphenated phrase", "made-to-measure curtains", true, 0.9, []string{"made to measure"}},
		{"Abbreviation", "MTM Venetian", true, 0.8, []string{"mtm"}},
		{"Phrase absorbs generic word", "Custom size shutters", true, 0.8, []string{"custom size"}},
		{"Generic word alone", "Custom colour cushion", false, 0.3, []string{"custom"}},
		{"No substring match", "Customer favourite", false, 0, []string{}},
		{"Empty", "", false, 0, []string{}},
	}

	e := NewMadeToMeasureExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Extract(tt.input)
			assert.Equal(t, tt.expected, result.IsMadeToMeasure)
			assert.InDelta(t, tt.confidence, result.Confidence, 0.001)
			assert.Equal(t, tt.indicators, result.Indicators)
		})
	}
}

func TestMadeToMeasureConfidenceOrdering(t *testing.T) {
	e := NewMadeToMeasureExtractor()

	exact := e.Extract("bespoke blind")
	generic := e.Extract("custom blind")
	combined := e.Extract("bespoke made to measure blind")

	assert.Greater(t, exact.Confidence, generic.Confidence)
	assert.Greater(t, combined.Confidence, exact.Confidence)
	assert.LessOrEqual(t, combined.Confidence, 1.0)
	assert.Len(t, combined.MatchedPatterns, 2)
}
