package extract

import (
	"sort"
	"strings"
)

// MadeToMeasureThreshold is the confidence at which a text is classified as
// describing a made-to-measure product
const MadeToMeasureThreshold = 0.5

// mtmIndicators weights each phrase by how specific it is. Exact trade
// phrases score high, generic words like "custom" score low on their own.
var mtmIndicators = map[string]float64{
	"made to measure": 0.9,
	"cut to measure":  0.85,
	"bespoke":         0.85,
	"mtm":             0.8,
	"custom size":     0.8,
	"custom sized":    0.8,
	"custom made":     0.75,
	"cut to size":     0.75,
	"made to order":   0.6,
	"any size":        0.55,
	"your size":       0.5,
	"tailored":        0.5,
	"personalised":    0.35,
	"custom":          0.3,
}

var mtmTerms []term

func init() {
	entries := make(map[string]string, len(mtmIndicators))
	for phrase := range mtmIndicators {
		entries[phrase] = phrase
	}
	mtmTerms = buildTerms(entries, 0, false)
	for i := range mtmTerms {
		mtmTerms[i].weight = mtmIndicators[mtmTerms[i].text]
	}
}

// MadeToMeasureResult is the outcome of made-to-measure detection
type MadeToMeasureResult struct {
	IsMadeToMeasure bool     `json:"is_made_to_measure"`
	Confidence      float64  `json:"confidence"`
	Indicators      []string `json:"indicators"`
	MatchedPatterns []string `json:"matched_patterns"`
}

// MadeToMeasureExtractor detects bespoke/custom-size products from free text
type MadeToMeasureExtractor struct{}

// NewMadeToMeasureExtractor creates a made-to-measure detector
func NewMadeToMeasureExtractor() *MadeToMeasureExtractor {
	return &MadeToMeasureExtractor{}
}

// Extract scans text for made-to-measure indicators. A generic word that sits
// inside an already matched phrase ("custom" in "custom size") is not counted twice.
func (e *MadeToMeasureExtractor) Extract(text string) MadeToMeasureResult {
	result := MadeToMeasureResult{
		Indicators:      []string{},
		MatchedPatterns: []string{},
	}
	if strings.TrimSpace(text) == "" {
		return result
	}

	var claimed []span
	var weights []float64
	seen := make(map[string]bool)

	for _, t := range mtmTerms {
		for _, loc := range t.pattern.FindAllStringIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(claimed, s) {
				continue
			}
			claimed = append(claimed, s)
			weights = append(weights, t.weight)
			result.MatchedPatterns = append(result.MatchedPatterns, text[loc[0]:loc[1]])
			if !seen[t.canonical] {
				seen[t.canonical] = true
				result.Indicators = append(result.Indicators, t.canonical)
			}
		}
	}

	sort.Strings(result.Indicators)
	result.Confidence = noisyOr(weights)
	result.IsMadeToMeasure = result.Confidence >= MadeToMeasureThreshold
	return result
}
