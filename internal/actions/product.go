package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/kosarica/import-service/internal/extract"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

// ResolveProduct finds or writes the row's parent product under the session's
// import mode
type ResolveProduct struct {
	catalog catalog.Catalog
	plan    *Plan
}

func NewResolveProduct(cat catalog.Catalog, plan *Plan) *ResolveProduct {
	return &ResolveProduct{catalog: cat, plan: plan}
}

func (a *ResolveProduct) Name() string   { return "resolve_product" }
func (a *ResolveProduct) Required() bool { return true }

func (a *ResolveProduct) Execute(ctx context.Context, ac *ActionContext) ActionResult {
	name := ac.String(types.FieldProductName)
	sku := ac.String(types.FieldProductSKU)

	var mutations []Mutation
	derived := false
	if name == "" && ac.Config.Features.AutoCreateParents && ac.Config.Features.SKUGrouping {
		if key, _ := extract.ParentKey(ac.String(types.FieldVariantSKU)); key != "" {
			name = extract.DisplayName(key)
			derived = true
			mutations = append(mutations, Mutation{Field: types.FieldProductName, Value: name})
		}
	}
	if name == "" && sku == "" {
		return fail("product name or SKU is required", nil)
	}

	existing, err := a.find(ctx, sku, name)
	if err != nil {
		return fail("failed to look up product", err)
	}

	if existing == nil {
		if ac.DryRun && a.plan != nil {
			if id, ok := a.plan.Product(sku, name); ok {
				ac.Metadata[MetaProductID] = id
				ac.Metadata[MetaWasCreated] = false
				ac.Metadata[MetaProductOutcome] = OutcomeUnchanged
				return succeed("product planned by an earlier row", mutations...)
			}
		}
		if ac.Config.Mode == session.ModeUpdateExisting {
			return fail(fmt.Sprintf("product %q not found", firstNonEmpty(sku, name)), catalog.ErrNotFound)
		}
		return a.create(ctx, ac, name, sku, derived, mutations)
	}

	ac.Metadata[MetaProductID] = existing.ID
	ac.Metadata[MetaWasCreated] = false
	ac.Metadata[MetaProductOutcome] = OutcomeUnchanged
	if ac.Config.Mode == session.ModeCreateOnly {
		return succeed(fmt.Sprintf("using existing product %s", existing.ID), mutations...)
	}

	fields := ac.Fields
	if derived {
		// a derived name must not rename the existing parent
		fields = withoutField(ac.Fields, types.FieldProductName)
	}
	changed := catalog.ChangedFields(fields, catalog.ProductFields, func(f string) (any, bool) {
		return catalog.ProductValue(existing, f)
	})
	if len(changed) == 0 {
		return succeed("product unchanged", mutations...)
	}

	ac.Metadata[MetaProductOutcome] = OutcomeUpdated
	if ac.DryRun {
		return succeed(fmt.Sprintf("product %s would be updated", existing.ID), mutations...)
	}
	if _, err := a.catalog.UpdateProduct(ctx, existing.ID, catalog.ProductPatchFromFields(changed)); err != nil {
		ac.Metadata[MetaProductOutcome] = OutcomeUnchanged
		return writeFailure("failed to update product", conflicts.EntityProduct, types.FieldProductSKU, err)
	}
	return succeed(fmt.Sprintf("updated %d product field(s)", len(changed)), mutations...)
}

func (a *ResolveProduct) create(ctx context.Context, ac *ActionContext, name, sku string, derived bool, mutations []Mutation) ActionResult {
	if name == "" {
		return fail(fmt.Sprintf("product %q not found and no name to create it with", sku), nil)
	}

	ac.Metadata[MetaWasCreated] = true
	ac.Metadata[MetaProductOutcome] = OutcomeCreated
	if derived {
		ac.Metadata[MetaParentCreated] = true
	}

	if ac.DryRun {
		if a.plan != nil {
			ac.Metadata[MetaProductID] = a.plan.AddProduct(sku, name)
		}
		return succeed(fmt.Sprintf("product %q would be created", name), mutations...)
	}

	fields := ac.Fields
	in := catalog.ProductInput{
		Name:        name,
		SKU:         catalog.StringField(fields, types.FieldProductSKU),
		Description: catalog.StringField(fields, types.FieldProductDescription),
		Brand:       catalog.StringField(fields, types.FieldBrand),
		Category:    catalog.StringField(fields, types.FieldCategory),
	}
	if mtm := catalog.BoolField(fields, types.FieldMadeToMeasure); mtm != nil {
		in.MadeToMeasure = *mtm
	}

	p, err := a.catalog.CreateProduct(ctx, in)
	if err != nil {
		delete(ac.Metadata, MetaWasCreated)
		delete(ac.Metadata, MetaProductOutcome)
		delete(ac.Metadata, MetaParentCreated)
		return writeFailure("failed to create product", conflicts.EntityProduct, types.FieldProductSKU, err)
	}
	ac.Metadata[MetaProductID] = p.ID
	return succeed(fmt.Sprintf("created product %s", p.ID), mutations...)
}

// find looks the product up by SKU first, then by name
func (a *ResolveProduct) find(ctx context.Context, sku, name string) (*catalog.Product, error) {
	if sku != "" {
		p, err := a.catalog.FindProductBySKU(ctx, sku)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
	}
	if name != "" {
		p, err := a.catalog.FindProductByName(ctx, name)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func withoutField(fields map[string]any, field string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != field {
			out[k] = v
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
