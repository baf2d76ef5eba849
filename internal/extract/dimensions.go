package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// UnitSystem tells whether measurements were given in metric or imperial units
type UnitSystem string

const (
	UnitSystemMetric   UnitSystem = "metric"
	UnitSystemImperial UnitSystem = "imperial"
)

// Confidence bases per recognised form. Labeled values beat delimited pairs,
// which beat a lone measurement. Hedging words scale the result down.
const (
	confidenceLabeledMulti  = 0.95
	confidenceLabeledSingle = 0.85
	confidenceDelimitedUnit = 0.75
	confidenceDelimitedBare = 0.6
	confidenceLoose         = 0.45
	hedgeFactor             = 0.6
)

const (
	numberPattern = `(\d+(?:[.,]\d+)?)`
	unitPattern   = `((?:mm|cm|m|inches|inch|in|ft|feet)\b|")?`
)

var (
	// "Width: 150cm", "drop 200 cm"
	labeledWordRe = regexp.MustCompile(`(?i)\b(width|drop|height|length|depth|diameter)\s*[:=]?\s*` + numberPattern + `\s*` + unitPattern)
	// "W: 150", "H=90cm", "W 150 x H 200". Without a separator the letter
	// must be followed by whitespace, so codes like "D3" stay unmatched.
	labeledAbbrevRe = regexp.MustCompile(`(?i)\b([whd])(?:\s*[:=]\s*|\s+)` + numberPattern + `\s*` + unitPattern)
	// "150cm wide", "200 cm drop"
	labeledSuffixRe = regexp.MustCompile(`(?i)` + numberPattern + `\s*` + unitPattern + `\s*(wide|drop|high|long|deep|diameter)\b`)
	// "150 x 200", "150cm x 200cm x 40cm"
	delimitedRe = regexp.MustCompile(`(?i)` + numberPattern + `\s*` + unitPattern + `\s*[x×*]\s*` + numberPattern + `\s*` + unitPattern + `(?:\s*[x×*]\s*` + numberPattern + `\s*` + unitPattern + `)?`)
	// "150cm"
	looseRe = regexp.MustCompile(`(?i)` + numberPattern + `\s*((?:mm|cm|m|inches|inch|in|ft|feet)\b|")`)
	// glue "150cmx200cm" into "150cm x 200cm" so unit word boundaries hold
	glueRe  = regexp.MustCompile(`(?i)(\d|mm|cm|m|in|")\s*([x×*])\s*(\d)`)
	hedgeRe = regexp.MustCompile(`(?i)\b(around|approx|approximately|about|maybe|roughly|circa|estimated|est)\b|~`)
)

// labelAliases maps labels onto dimension names. The abbreviation "d" is
// always drop; depth is only recognised spelled out.
var labelAliases = map[string]string{
	"width": "width", "wide": "width", "w": "width",
	"drop": "drop", "d": "drop",
	"height": "height", "high": "height", "h": "height",
	"length": "length", "long": "length",
	"depth": "depth", "deep": "depth",
	"diameter": "diameter",
}

var unitAliases = map[string]string{
	"mm": "mm", "cm": "cm", "m": "m",
	"in": "in", "inch": "in", "inches": "in", `"`: "in",
	"ft": "ft", "feet": "ft",
}

// millimetres per unit, used to align mixed units onto the first unit seen
var unitScale = map[string]float64{
	"mm": 1, "cm": 10, "m": 1000, "in": 25.4, "ft": 304.8,
}

// Dimensions holds the measurements found in a text. Unit is empty when the
// text carried none, or when the extractor runs in digits-only mode.
type Dimensions struct {
	Width    *float64 `json:"width,omitempty"`
	Drop     *float64 `json:"drop,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Length   *float64 `json:"length,omitempty"`
	Depth    *float64 `json:"depth,omitempty"`
	Diameter *float64 `json:"diameter,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

// Values returns the populated measurements keyed by dimension name
func (d Dimensions) Values() map[string]float64 {
	out := make(map[string]float64)
	for name, v := range map[string]*float64{
		"width": d.Width, "drop": d.Drop, "height": d.Height,
		"length": d.Length, "depth": d.Depth, "diameter": d.Diameter,
	} {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}

func (d *Dimensions) slot(name string) **float64 {
	switch name {
	case "width":
		return &d.Width
	case "drop":
		return &d.Drop
	case "height":
		return &d.Height
	case "length":
		return &d.Length
	case "depth":
		return &d.Depth
	case "diameter":
		return &d.Diameter
	}
	return nil
}

// DimensionResult is the outcome of dimension extraction
type DimensionResult struct {
	FoundDimensions bool       `json:"found_dimensions"`
	Dimensions      Dimensions `json:"dimensions"`
	UnitSystem      UnitSystem `json:"unit_system"`
	Confidence      float64    `json:"confidence"`
	Form            string     `json:"form,omitempty"`
}

// DimensionExtractor parses measurements out of product text
type DimensionExtractor struct {
	// DigitsOnly drops the unit and returns bare numbers
	DigitsOnly bool
}

// NewDimensionExtractor creates a dimension extractor
func NewDimensionExtractor(digitsOnly bool) *DimensionExtractor {
	return &DimensionExtractor{DigitsOnly: digitsOnly}
}

// measurement is one parsed value before unit alignment
type measurement struct {
	name  string
	value float64
	unit  string
}

// Extract recognises labeled values first, then delimited pairs or triples,
// and finally a lone measurement with a unit.
func (e *DimensionExtractor) Extract(text string) DimensionResult {
	result := DimensionResult{UnitSystem: UnitSystemMetric}
	if strings.TrimSpace(text) == "" {
		return result
	}
	normalized := glueRe.ReplaceAllString(text, "$1 $2 $3")

	var found []measurement
	var confidence float64

	if labeled := extractLabeled(normalized); len(labeled) > 0 {
		found = labeled
		result.Form = "labeled"
		confidence = confidenceLabeledSingle
		if len(labeled) > 1 {
			confidence = confidenceLabeledMulti
		}
	} else if m := delimitedRe.FindStringSubmatch(normalized); m != nil {
		found = extractDelimited(m)
		result.Form = "delimited"
		confidence = confidenceDelimitedBare
		for _, f := range found {
			if f.unit != "" {
				confidence = confidenceDelimitedUnit
				break
			}
		}
	} else if m := looseRe.FindStringSubmatch(normalized); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			found = []measurement{{name: "width", value: v, unit: unitAliases[strings.ToLower(m[2])]}}
			result.Form = "loose"
			confidence = confidenceLoose
		}
	}

	if len(found) == 0 {
		return result
	}
	if hedgeRe.MatchString(text) {
		confidence *= hedgeFactor
	}

	unit := alignUnits(found)
	for _, f := range found {
		if slot := result.Dimensions.slot(f.name); slot != nil && *slot == nil {
			v := round2(f.value)
			*slot = &v
		}
	}

	if unit == "in" || unit == "ft" {
		result.UnitSystem = UnitSystemImperial
	}
	if !e.DigitsOnly {
		result.Dimensions.Unit = unit
	}
	result.FoundDimensions = true
	result.Confidence = round2(confidence)
	return result
}

func extractLabeled(text string) []measurement {
	var out []measurement
	var claimed []span
	seen := make(map[string]bool)
	scan := func(re *regexp.Regexp, label, num, unit int) {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(claimed, s) {
				continue
			}
			name := labelAliases[strings.ToLower(group(text, loc, label))]
			if name == "" || seen[name] {
				continue
			}
			v, ok := parseNumber(group(text, loc, num))
			if !ok {
				continue
			}
			seen[name] = true
			claimed = append(claimed, s)
			out = append(out, measurement{name: name, value: v, unit: unitAliases[strings.ToLower(group(text, loc, unit))]})
		}
	}

	scan(labeledWordRe, 1, 2, 3)
	scan(labeledAbbrevRe, 1, 2, 3)
	scan(labeledSuffixRe, 3, 1, 2)
	return out
}

func group(text string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

// extractDelimited maps a pair onto width x drop and a triple onto
// width x height x depth
func extractDelimited(m []string) []measurement {
	names := []string{"width", "drop"}
	if m[5] != "" {
		names = []string{"width", "height", "depth"}
	}
	var out []measurement
	for i, name := range names {
		v, ok := parseNumber(m[1+i*2])
		if !ok {
			continue
		}
		out = append(out, measurement{name: name, value: v, unit: unitAliases[strings.ToLower(m[2+i*2])]})
	}
	// a trailing unit applies to every bare value: "150 x 200cm"
	var shared string
	for _, o := range out {
		if o.unit != "" {
			shared = o.unit
		}
	}
	for i := range out {
		if out[i].unit == "" {
			out[i].unit = shared
		}
	}
	return out
}

// alignUnits converts every measurement onto the first unit seen and returns it
func alignUnits(found []measurement) string {
	var unit string
	for _, f := range found {
		if f.unit != "" {
			unit = f.unit
			break
		}
	}
	if unit == "" {
		return ""
	}
	for i := range found {
		if found[i].unit != "" && found[i].unit != unit {
			found[i].value = found[i].value * unitScale[found[i].unit] / unitScale[unit]
			found[i].unit = unit
		}
	}
	return unit
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
