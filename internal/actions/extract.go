package actions

import (
	"context"
	"strings"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/extract"
	"github.com/kosarica/import-service/internal/types"
)

// minDimensionConfidence is the floor below which extracted dimensions are dropped
const minDimensionConfidence = 0.5

// ExtractAttributes derives color, size, dimensions and made-to-measure from
// the row's free text. Explicit column values always win over extracted ones.
type ExtractAttributes struct {
	mtm *extract.MadeToMeasureExtractor
}

func NewExtractAttributes() *ExtractAttributes {
	return &ExtractAttributes{mtm: extract.NewMadeToMeasureExtractor()}
}

func (a *ExtractAttributes) Name() string   { return "extract_attributes" }
func (a *ExtractAttributes) Required() bool { return false }

func (a *ExtractAttributes) Execute(_ context.Context, ac *ActionContext) ActionResult {
	features := ac.Config.Features
	if !features.SmartAttributeExtraction && !features.MadeToMeasureDetection {
		return succeed("extraction disabled")
	}

	text := rowText(ac)
	if text == "" {
		return succeed("no text to extract from")
	}

	var (
		mutations  []Mutation
		confidence []float64
	)

	if features.SmartAttributeExtraction {
		attrs := extract.NewAttributeExtractor(features.DigitsOnlyDimensions)

		if colors := attrs.ExtractColors(text); colors.Found() && !ac.Has(types.FieldVariantColor) {
			mutations = append(mutations, Mutation{Field: types.FieldVariantColor, Value: colors.First()})
			confidence = append(confidence, colors.Confidence)
		}
		if sizes := attrs.ExtractSizes(text); sizes.Found() && !ac.Has(types.FieldVariantSize) {
			mutations = append(mutations, Mutation{Field: types.FieldVariantSize, Value: sizes.First()})
			confidence = append(confidence, sizes.Confidence)
		}

		dims := extract.NewDimensionExtractor(features.DigitsOnlyDimensions).Extract(text)
		if dims.FoundDimensions && dims.Confidence >= minDimensionConfidence {
			for name, v := range dims.Dimensions.Values() {
				mutations = append(mutations, Mutation{Field: ExtractedPrefix + name, Value: v})
			}
			if dims.Dimensions.Unit != "" && !ac.Has(catalog.FieldDimensionUnit) {
				mutations = append(mutations, Mutation{Field: catalog.FieldDimensionUnit, Value: dims.Dimensions.Unit})
			}
			confidence = append(confidence, dims.Confidence)
		} else if dims.FoundDimensions {
			ac.Warn("dimensions in row text ignored: confidence %.2f", dims.Confidence)
		}
	}

	if features.MadeToMeasureDetection {
		res := a.mtm.Extract(text)
		mutations = append(mutations, Mutation{Field: FieldMTMConfidence, Value: res.Confidence})
		if res.IsMadeToMeasure && !ac.Has(types.FieldMadeToMeasure) {
			mutations = append(mutations, Mutation{Field: types.FieldMadeToMeasure, Value: true})
			confidence = append(confidence, res.Confidence)
		}
	}

	ac.Metadata[MetaExtractedCount] = len(confidence)
	if len(confidence) > 0 {
		var sum float64
		for _, c := range confidence {
			sum += c
		}
		ac.Metadata[MetaExtraction] = sum / float64(len(confidence))
	}
	return succeed("attributes extracted", mutations...)
}

func rowText(ac *ActionContext) string {
	parts := make([]string, 0, 3)
	for _, field := range []string{types.FieldProductName, types.FieldVariantName, types.FieldProductDescription} {
		if s := ac.String(field); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
