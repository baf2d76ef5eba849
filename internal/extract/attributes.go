package extract

import (
	"regexp"
	"sort"
	"strings"
)

const (
	exactMatchWeight   = 0.9
	partialMatchWeight = 0.7
)

var sizeNumericRe = regexp.MustCompile(`^\d{1,2}$`)

// AttributeMatch is the result of one dictionary extraction
type AttributeMatch struct {
	Values     []string `json:"values"`
	Confidence float64  `json:"confidence"`
	Matches    []string `json:"matches"`
}

// Found reports whether anything was extracted
func (m AttributeMatch) Found() bool {
	return len(m.Values) > 0
}

// First returns the first extracted value or an empty string
func (m AttributeMatch) First() string {
	if len(m.Values) == 0 {
		return ""
	}
	return m.Values[0]
}

// Attributes bundles every extractor's output for one text
type Attributes struct {
	Colors        AttributeMatch      `json:"colors"`
	Sizes         AttributeMatch      `json:"sizes"`
	Dimensions    DimensionResult     `json:"dimensions"`
	MadeToMeasure MadeToMeasureResult `json:"made_to_measure"`
}

// AttributeExtractor finds colors and sizes by whole-word dictionary lookup
type AttributeExtractor struct {
	dimensions *DimensionExtractor
	mtm        *MadeToMeasureExtractor
}

// NewAttributeExtractor creates an attribute extractor. digitsOnly is passed
// through to the dimension extractor used by ExtractAll.
func NewAttributeExtractor(digitsOnly bool) *AttributeExtractor {
	return &AttributeExtractor{
		dimensions: NewDimensionExtractor(digitsOnly),
		mtm:        NewMadeToMeasureExtractor(),
	}
}

// hit is one dictionary match located in the text
type hit struct {
	at     span
	value  string
	raw    string
	weight float64
}

// ExtractColors returns the colors named in text. Matching is whole-word, so
// "Blackout" does not yield black and "Bluetooth" does not yield blue.
func (e *AttributeExtractor) ExtractColors(text string) AttributeMatch {
	terms := make([]term, 0, len(colorTerms)+len(synonymTerms))
	terms = append(terms, colorTerms...)
	terms = append(terms, synonymTerms...)
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i].text) > len(terms[j].text) })

	var hits []hit
	var claimed []span
	for _, t := range terms {
		for _, loc := range t.pattern.FindAllStringSubmatchIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(claimed, s) {
				continue
			}
			claimed = append(claimed, s)
			weight := t.weight
			// a plural suffix ("greys") is a partial hit
			if len(loc) > 2 && loc[2] >= 0 {
				weight = partialMatchWeight
			}
			hits = append(hits, hit{at: s, value: t.canonical, raw: text[loc[0]:loc[1]], weight: weight})
		}
	}
	return collect(hits)
}

// ExtractSizes returns sizes named in text. Word sizes match in any case.
// Single letters S/M/L count only in upper case or right after "size".
func (e *AttributeExtractor) ExtractSizes(text string) AttributeMatch {
	var hits []hit
	var claimed []span

	for _, t := range sizeTerms {
		for _, loc := range t.pattern.FindAllStringIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(claimed, s) {
				continue
			}
			claimed = append(claimed, s)
			hits = append(hits, hit{at: s, value: t.canonical, raw: text[loc[0]:loc[1]], weight: t.weight})
		}
	}

	for _, loc := range sizeLabelRe.FindAllStringSubmatchIndex(text, -1) {
		s := span{loc[2], loc[3]}
		if overlaps(claimed, s) {
			continue
		}
		raw := text[loc[2]:loc[3]]
		value, ok := sizeLookup[strings.ToLower(raw)]
		if !ok {
			if !sizeNumericRe.MatchString(raw) {
				continue
			}
			value = raw
		}
		claimed = append(claimed, s)
		hits = append(hits, hit{at: s, value: value, raw: raw, weight: partialMatchWeight})
	}

	for _, loc := range tokenRe.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if raw != "S" && raw != "M" && raw != "L" {
			continue
		}
		s := span{loc[0], loc[1]}
		if overlaps(claimed, s) {
			continue
		}
		claimed = append(claimed, s)
		hits = append(hits, hit{at: s, value: raw, raw: raw, weight: exactMatchWeight})
	}

	return collect(hits)
}

// ExtractAll runs every extractor over text
func (e *AttributeExtractor) ExtractAll(text string) Attributes {
	return Attributes{
		Colors:        e.ExtractColors(text),
		Sizes:         e.ExtractSizes(text),
		Dimensions:    e.dimensions.Extract(text),
		MadeToMeasure: e.mtm.Extract(text),
	}
}

// collect orders hits by position, dedupes values and scores the mean weight
func collect(hits []hit) AttributeMatch {
	result := AttributeMatch{Values: []string{}, Matches: []string{}}
	if len(hits) == 0 {
		return result
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at.start < hits[j].at.start })

	seen := make(map[string]bool)
	var total float64
	for _, h := range hits {
		total += h.weight
		result.Matches = append(result.Matches, h.raw)
		if !seen[h.value] {
			seen[h.value] = true
			result.Values = append(result.Values, h.value)
		}
	}
	result.Confidence = round2(total / float64(len(hits)))
	return result
}
