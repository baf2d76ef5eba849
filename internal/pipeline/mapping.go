package pipeline

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

// MinMappingConfidence is the score below which a column stays unmapped
const MinMappingConfidence = 0.5

// fieldSynonyms are the header spellings each canonical field answers to,
// already normalized
var fieldSynonyms = map[string][]string{
	types.FieldProductName:        {"product name", "product", "name", "title", "product title", "item name", "naziv", "naziv proizvoda"},
	types.FieldProductSKU:         {"product sku", "parent sku", "style", "style code", "model", "product code", "parent code"},
	types.FieldProductDescription: {"description", "product description", "desc", "details", "opis"},
	types.FieldBrand:              {"brand", "manufacturer", "make", "marka", "proizvodac"},
	types.FieldCategory:           {"category", "product type", "type", "department", "kategorija"},
	types.FieldVariantSKU:         {"sku", "variant sku", "item sku", "item code", "article number", "art no", "sifra", "code"},
	types.FieldVariantName:        {"variant name", "variant", "option name", "variant title"},
	types.FieldVariantColor:       {"color", "colour", "variant color", "variant colour", "boja", "shade"},
	types.FieldVariantSize:        {"size", "variant size", "velicina", "dimension"},
	types.FieldWidth:              {"width", "w", "width cm", "sirina"},
	types.FieldDrop:               {"drop", "drop cm", "length drop"},
	types.FieldHeight:             {"height", "h", "height cm", "visina"},
	types.FieldLength:             {"length", "l", "length cm", "duzina"},
	types.FieldDepth:              {"depth", "d", "depth cm", "dubina"},
	types.FieldDiameter:           {"diameter", "dia", "promjer"},
	types.FieldWeight:             {"weight", "weight kg", "mass", "tezina"},
	types.FieldBarcode:            {"barcode", "ean", "ean13", "upc", "gtin", "bar code", "barkod"},
	types.FieldBarcodeType:        {"barcode type", "ean type", "code type"},
	types.FieldRetailPrice:        {"retail price", "price", "rrp", "msrp", "selling price", "cijena", "maloprodajna cijena"},
	types.FieldTradePrice:         {"trade price", "wholesale price", "wholesale", "dealer price", "veleprodajna cijena"},
	types.FieldCostPrice:          {"cost price", "cost", "purchase price", "nabavna cijena"},
	types.FieldSalePrice:          {"sale price", "special price", "discount price", "promo price", "akcijska cijena"},
	types.FieldMadeToMeasure:      {"made to measure", "mtm", "bespoke", "custom size", "custom made"},
}

var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader lowercases, folds diacritics and turns punctuation into
// single spaces
func NormalizeHeader(h string) string {
	folded, _, err := transform.String(diacritics, h)
	if err != nil {
		folded = h
	}
	// đ has no decomposition
	folded = strings.NewReplacer("đ", "d", "Đ", "d").Replace(folded)

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// SuggestMapping proposes a field for every header. Each field is given to
// at most one column, the best-scoring one; columns scoring below
// MinMappingConfidence stay unmapped.
func SuggestMapping(headers []string) (map[int]string, []session.ColumnSuggestion) {
	type candidate struct {
		col   int
		field string
		score float64
	}

	var candidates []candidate
	for col, h := range headers {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		if channel, ok := priceChannel(n); ok {
			candidates = append(candidates, candidate{col, types.PriceFieldPrefix + channel, 0.75})
		}
		for field, synonyms := range fieldSynonyms {
			score := fieldScore(n, field, synonyms)
			if score > 0 {
				candidates = append(candidates, candidate{col, field, score})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].col != candidates[j].col {
			return candidates[i].col < candidates[j].col
		}
		return candidates[i].field < candidates[j].field
	})

	mapping := make(map[int]string)
	suggestions := make([]session.ColumnSuggestion, len(headers))
	for col, h := range headers {
		suggestions[col] = session.ColumnSuggestion{Column: col, Header: h}
	}
	usedField := make(map[string]bool)
	for _, c := range candidates {
		if c.score < MinMappingConfidence {
			break
		}
		if _, taken := mapping[c.col]; taken || usedField[c.field] {
			continue
		}
		mapping[c.col] = c.field
		usedField[c.field] = true
		suggestions[c.col].Field = c.field
		suggestions[c.col].Confidence = round2(c.score)
	}
	return mapping, suggestions
}

// UnmappedColumns lists the header indexes mapping leaves out
func UnmappedColumns(headers []string, mapping map[int]string) []int {
	out := []int{}
	for col := range headers {
		if mapping[col] == "" {
			out = append(out, col)
		}
	}
	return out
}

func fieldScore(header, field string, synonyms []string) float64 {
	if header == field || header == strings.ReplaceAll(field, "_", " ") {
		return 1
	}
	best := 0.0
	for _, syn := range synonyms {
		if header == syn {
			return 0.95
		}
		if s := headerSimilarity(header, syn); s > best {
			best = s
		}
	}
	// a similarity match is never as certain as a synonym hit
	return best * 0.9
}

// priceChannel recognises "price <channel>" and "<channel> price" headers for
// channels without a dedicated field
func priceChannel(header string) (string, bool) {
	tokens := strings.Fields(header)
	if len(tokens) != 2 {
		return "", false
	}
	var channel string
	switch {
	case tokens[0] == "price":
		channel = tokens[1]
	case tokens[1] == "price":
		channel = tokens[0]
	default:
		return "", false
	}
	switch channel {
	case "retail", "trade", "cost", "sale", "special", "selling", "purchase", "discount", "promo", "wholesale", "dealer":
		return "", false
	case "eur", "usd", "gbp", "hrk", "kn", "incl", "excl", "net", "gross":
		return "", false
	}
	return channel, true
}

// headerSimilarity is the larger of token overlap (Jaccard) and normalized
// edit distance over the joined tokens
func headerSimilarity(a, b string) float64 {
	at, bt := strings.Fields(a), strings.Fields(b)
	aj, bj := strings.Join(at, ""), strings.Join(bt, "")
	if aj == "" || bj == "" {
		return 0
	}

	seq := 1 - float64(levenshtein(aj, bj))/float64(max(len([]rune(aj)), len([]rune(bj))))

	set := make(map[string]bool, len(at))
	for _, t := range at {
		set[t] = true
	}
	inter, union := 0, len(set)
	seen := make(map[string]bool, len(bt))
	for _, t := range bt {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	jaccard := float64(inter) / float64(union)

	return math.Max(0, math.Max(seq, jaccard))
}

func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) < len(br) {
		ar, br = br, ar
	}
	prev := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ar {
		curr := make([]int, len(br)+1)
		curr[0] = i + 1
		for j, cb := range br {
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, sub)
		}
		prev = curr
	}
	return prev[len(br)]
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
