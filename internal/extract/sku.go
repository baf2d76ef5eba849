package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// PatternType names the SKU family detected across a set of SKUs
type PatternType string

const (
	PatternHierarchical        PatternType = "hierarchical"
	PatternNumericHierarchical PatternType = "numeric_hierarchical"
	PatternSequential          PatternType = "sequential"
	PatternAttributeBased      PatternType = "attribute_based"
	PatternMixed               PatternType = "mixed"
	PatternNone                PatternType = "none"
)

const (
	// minimum confidence for has_pattern
	skuPatternThreshold = 0.3
	// share of SKUs a secondary family needs before the set is "mixed"
	mixedFamilyShare = 0.25
	minGroupSize     = 2
)

var (
	hierarchicalRe        = regexp.MustCompile(`^([A-Za-z]+)((?:[-_.]\d+)+)$`)
	numericHierarchicalRe = regexp.MustCompile(`^(\d+)((?:[-_.]\d+)+)$`)
	sequentialRe          = regexp.MustCompile(`^([A-Za-z]*)(\d{2,})$`)
	skuSeparatorRe        = regexp.MustCompile(`[-_.\s]+`)
)

// SkuAnalysis is the outcome of SKU pattern analysis
type SkuAnalysis struct {
	HasPattern          bool                `json:"has_pattern"`
	PatternType         PatternType         `json:"pattern_type"`
	Confidence          float64             `json:"confidence"`
	Groups              map[string][]string `json:"groups"`
	Ungrouped           []string            `json:"ungrouped"`
	ParentNames         map[string]string   `json:"parent_names"`
	SuggestedParentName string              `json:"suggested_parent_name,omitempty"`
	FamilyCounts        map[PatternType]int `json:"family_counts"`
}

// SkuPatternAnalyzer infers parent/variant grouping from SKU structure
type SkuPatternAnalyzer struct{}

// NewSkuPatternAnalyzer creates a SKU pattern analyzer
func NewSkuPatternAnalyzer() *SkuPatternAnalyzer {
	return &SkuPatternAnalyzer{}
}

// ParentKey classifies one SKU and returns the parent token it groups under.
// Attribute-based SKUs are checked first so "TEE-RED-L" groups under "TEE".
func ParentKey(sku string) (string, PatternType) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return "", PatternNone
	}

	tokens := skuSeparatorRe.Split(sku, -1)
	if len(tokens) >= 2 {
		end := len(tokens)
		for end > 1 && (IsColorToken(tokens[end-1]) || IsSizeToken(tokens[end-1])) {
			end--
		}
		if end < len(tokens) {
			return strings.Join(tokens[:end], "-"), PatternAttributeBased
		}
	}

	if m := hierarchicalRe.FindStringSubmatch(sku); m != nil {
		segments := skuSeparatorRe.Split(strings.TrimLeft(m[2], "-_."), -1)
		if len(segments) == 1 {
			return m[1], PatternHierarchical
		}
		return m[1] + "-" + strings.Join(segments[:len(segments)-1], "-"), PatternHierarchical
	}

	if numericHierarchicalRe.MatchString(sku) {
		segments := skuSeparatorRe.Split(sku, -1)
		return strings.Join(segments[:len(segments)-1], "-"), PatternNumericHierarchical
	}

	if m := sequentialRe.FindStringSubmatch(sku); m != nil {
		if m[1] != "" {
			return m[1], PatternSequential
		}
		return m[2][:len(m[2])-2], PatternSequential
	}

	return "", PatternNone
}

// Analyze detects the dominant SKU family and proposes parent groups.
// Confidence is the dominant family's share of all SKUs scaled by the share
// that landed in a group of at least two.
func (a *SkuPatternAnalyzer) Analyze(skus []string) SkuAnalysis {
	result := SkuAnalysis{
		PatternType:  PatternNone,
		Groups:       map[string][]string{},
		Ungrouped:    []string{},
		ParentNames:  map[string]string{},
		FamilyCounts: map[PatternType]int{},
	}

	unique := dedupe(skus)
	if len(unique) == 0 {
		return result
	}

	candidates := make(map[string][]string)
	for _, sku := range unique {
		parent, family := ParentKey(sku)
		result.FamilyCounts[family]++
		if family == PatternNone || parent == "" {
			result.Ungrouped = append(result.Ungrouped, sku)
			continue
		}
		candidates[parent] = append(candidates[parent], sku)
	}

	grouped := 0
	for parent, members := range candidates {
		if len(members) < minGroupSize {
			result.Ungrouped = append(result.Ungrouped, members...)
			continue
		}
		result.Groups[parent] = members
		result.ParentNames[parent] = DisplayName(parent)
		grouped += len(members)
	}
	sort.Strings(result.Ungrouped)

	dominant, dominantCount := PatternNone, 0
	for _, family := range []PatternType{PatternAttributeBased, PatternHierarchical, PatternNumericHierarchical, PatternSequential} {
		if c := result.FamilyCounts[family]; c > dominantCount {
			dominant, dominantCount = family, c
		}
	}
	if dominantCount == 0 {
		return result
	}

	total := float64(len(unique))
	result.PatternType = dominant
	for family, c := range result.FamilyCounts {
		if family == dominant || family == PatternNone {
			continue
		}
		if c >= minGroupSize && float64(c)/total >= mixedFamilyShare {
			result.PatternType = PatternMixed
		}
	}

	result.Confidence = round2(float64(dominantCount) / total * float64(grouped) / total)
	result.HasPattern = len(result.Groups) > 0 && result.Confidence >= skuPatternThreshold

	names := make([]string, 0, len(result.ParentNames))
	for _, parent := range sortedKeys(result.Groups) {
		names = append(names, result.ParentNames[parent])
	}
	result.SuggestedParentName = CommonPrefixName(names)
	if result.SuggestedParentName == "" && len(names) > 0 {
		result.SuggestedParentName = names[largestGroup(result.Groups)]
	}
	return result
}

// DisplayName turns a parent token into a readable name: "ROLLER-BLIND" -> "Roller Blind"
func DisplayName(token string) string {
	words := skuSeparatorRe.Split(strings.TrimSpace(token), -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		out = append(out, string(r))
	}
	return strings.Join(out, " ")
}

// CommonPrefixName returns the leading words shared by every name, compared
// case-insensitively and returned in the casing of the first name
func CommonPrefixName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	first := strings.Fields(names[0])
	n := len(first)
	for _, name := range names[1:] {
		words := strings.Fields(name)
		if len(words) < n {
			n = len(words)
		}
		for i := 0; i < n; i++ {
			if !strings.EqualFold(words[i], first[i]) {
				n = i
				break
			}
		}
	}
	return strings.TrimRight(strings.Join(first[:n], " "), " -_,")
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// largestGroup returns the index, in sorted key order, of the biggest group
func largestGroup(groups map[string][]string) int {
	best, bestSize := 0, -1
	for i, k := range sortedKeys(groups) {
		if len(groups[k]) > bestSize {
			best, bestSize = i, len(groups[k])
		}
	}
	return best
}
