// Package extract holds the stateless text heuristics used during import:
// made-to-measure detection, dimension parsing, color/size extraction and
// SKU pattern analysis. All lexicons are package-level tables that are
// built once at init and never mutated afterwards.
package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// term is one lexicon entry compiled to a word-boundary pattern
type term struct {
	canonical string
	text      string
	weight    float64
	pattern   *regexp.Regexp
}

// phrasePattern builds a case-insensitive, word-bounded pattern for a phrase.
// Spaces and hyphens inside the phrase are interchangeable.
func phrasePattern(phrase string, allowPlural bool) *regexp.Regexp {
	words := strings.Fields(strings.ReplaceAll(phrase, "-", " "))
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `[\s\-]+`)
	if allowPlural {
		body += `(e?s)?`
	}
	return regexp.MustCompile(`(?i)\b` + body + `\b`)
}

// buildTerms compiles entries and orders them longest first so multi-word
// phrases win over their single-word components.
func buildTerms(entries map[string]string, weight float64, allowPlural bool) []term {
	terms := make([]term, 0, len(entries))
	for text, canonical := range entries {
		terms = append(terms, term{
			canonical: canonical,
			text:      text,
			weight:    weight,
			pattern:   phrasePattern(text, allowPlural),
		})
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i].text) != len(terms[j].text) {
			return len(terms[i].text) > len(terms[j].text)
		}
		return terms[i].text < terms[j].text
	})
	return terms
}

// colorNames are exact dictionary entries
var colorNames = []string{
	"black", "white", "grey", "red", "blue", "green", "yellow", "orange", "purple",
	"pink", "brown", "beige", "cream", "ivory", "navy", "teal", "silver", "gold",
	"charcoal", "natural", "taupe", "mustard", "burgundy", "turquoise", "lilac",
	"mauve", "sage", "ochre", "aqua", "oatmeal", "linen", "stone", "sand", "slate",
	"copper", "bronze", "chrome", "walnut", "oak",
	"navy blue", "sky blue", "royal blue", "light grey", "dark grey", "off white",
	"duck egg", "forest green", "bottle green", "dusky pink", "blush pink",
}

// colorSynonyms map spelling variants onto a canonical color
var colorSynonyms = map[string]string{
	"gray":       "grey",
	"light gray": "light grey",
	"dark gray":  "dark grey",
	"offwhite":   "off white",
	"ecru":       "cream",
	"anthracite": "charcoal",
	"magenta":    "pink",
	"violet":     "purple",
	"crimson":    "red",
	"scarlet":    "red",
}

// sizeWords are word-form sizes matched case-insensitively
var sizeWords = []string{
	"extra small", "small", "medium", "large", "extra large",
	"single", "small double", "double", "king", "super king", "queen",
	"one size", "petite", "xxs", "xs", "xl", "xxl", "xxxl", "2xl", "3xl",
}

// sizeLetters are single-letter codes that only count as sizes when written
// in upper case as a standalone token, or right after the word "size"
var sizeLetters = []string{"S", "M", "L"}

var (
	colorTerms   []term
	synonymTerms []term
	sizeTerms    []term

	colorLookup map[string]string
	sizeLookup  map[string]string

	tokenRe     = regexp.MustCompile(`[^\s,/()|;]+`)
	sizeLabelRe = regexp.MustCompile(`(?i)\bsize\s*[:=]?\s*(\d{1,2}|[a-z]{1,4})\b`)
)

func init() {
	exact := make(map[string]string, len(colorNames))
	for _, c := range colorNames {
		exact[c] = c
	}
	colorTerms = buildTerms(exact, 0.9, true)
	synonymTerms = buildTerms(colorSynonyms, 0.7, false)

	sizes := make(map[string]string, len(sizeWords))
	for _, s := range sizeWords {
		sizes[s] = canonicalSize(s)
	}
	sizeTerms = buildTerms(sizes, 0.9, false)

	colorLookup = make(map[string]string, len(colorNames)+len(colorSynonyms))
	for k, v := range exact {
		colorLookup[k] = v
	}
	for k, v := range colorSynonyms {
		colorLookup[k] = v
	}

	sizeLookup = make(map[string]string, len(sizeWords)+len(sizeLetters))
	for k, v := range sizes {
		sizeLookup[k] = v
	}
	for _, l := range sizeLetters {
		sizeLookup[strings.ToLower(l)] = l
	}
}

// canonicalSize upper-cases letter codes (xl -> XL) and keeps words lower-case
func canonicalSize(s string) string {
	switch s {
	case "xxs", "xs", "xl", "xxl", "xxxl", "2xl", "3xl":
		return strings.ToUpper(s)
	}
	return s
}

// IsColorToken reports whether a single token names a known color
func IsColorToken(token string) bool {
	_, ok := colorLookup[strings.ToLower(token)]
	return ok
}

// IsSizeToken reports whether a single token names a known size
func IsSizeToken(token string) bool {
	_, ok := sizeLookup[strings.ToLower(token)]
	return ok
}

// span is a half-open byte range already claimed by a match
type span struct{ start, end int }

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

// noisyOr combines independent evidence weights into one confidence.
// Adding a match never lowers the score.
func noisyOr(weights []float64) float64 {
	miss := 1.0
	for _, w := range weights {
		miss *= 1 - clamp01(w)
	}
	return round2(1 - miss)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
