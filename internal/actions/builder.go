package actions

import "github.com/kosarica/import-service/internal/catalog"

// NewRowPipeline assembles the canonical action chain: validate, extract
// attributes, resolve product, resolve variant, assign barcode, set pricing.
// plan is only consulted by dry runs and may be nil otherwise.
func NewRowPipeline(cat catalog.Catalog, plan *Plan) *Pipeline {
	return NewPipeline(
		NewValidateRow(),
		NewExtractAttributes(),
		NewResolveProduct(cat, plan),
		NewResolveVariant(cat, plan),
		NewAssignBarcode(cat, plan),
		NewSetPricing(cat),
	).Use(
		Recover(),
		Timing(observeAction),
		TranslateErrors(),
	)
}
