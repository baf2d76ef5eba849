package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

// ResolveVariant finds or writes the row's variant, keyed by variant_sku.
// Rows without a variant SKU describe the product only and pass through.
type ResolveVariant struct {
	catalog catalog.Catalog
	plan    *Plan
}

func NewResolveVariant(cat catalog.Catalog, plan *Plan) *ResolveVariant {
	return &ResolveVariant{catalog: cat, plan: plan}
}

func (a *ResolveVariant) Name() string   { return "resolve_variant" }
func (a *ResolveVariant) Required() bool { return true }

func (a *ResolveVariant) Execute(ctx context.Context, ac *ActionContext) ActionResult {
	sku := ac.String(types.FieldVariantSKU)
	if sku == "" {
		return succeed("no variant on row")
	}
	productID := ac.MetaString(MetaProductID)
	if productID == "" {
		return fail("variant has no resolved product", nil)
	}

	fields := variantFields(ac.Fields)

	existing, err := a.catalog.FindVariantBySKU(ctx, sku)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return fail("failed to look up variant", err)
	}

	if existing == nil {
		if ac.DryRun && a.plan != nil {
			if id, ok := a.plan.Variant(sku); ok {
				ac.Metadata[MetaVariantID] = id
				ac.Metadata[MetaVariantOutcome] = OutcomeUnchanged
				return succeed("variant planned by an earlier row")
			}
		}
		if ac.Config.Mode == session.ModeUpdateExisting {
			return fail(fmt.Sprintf("variant %q not found", sku), catalog.ErrNotFound)
		}
		return a.create(ctx, ac, productID, sku, fields)
	}

	if existing.ProductID != productID {
		ac.Metadata[MetaExistingSKU] = sku
		if ac.DryRun {
			ac.Metadata[MetaVariantID] = existing.ID
			ac.Metadata[MetaVariantOutcome] = OutcomeUnchanged
			return succeed(fmt.Sprintf("variant sku %q belongs to another product", sku))
		}
		return writeFailure(
			fmt.Sprintf("variant sku %q belongs to another product", sku),
			conflicts.EntityVariant, types.FieldVariantSKU,
			catalog.NewConstraintViolation(catalog.VariantsSKUKey, "variants", sku),
		)
	}

	ac.Metadata[MetaVariantID] = existing.ID
	ac.Metadata[MetaVariantOutcome] = OutcomeUnchanged
	if ac.Config.Mode == session.ModeCreateOnly {
		return succeed(fmt.Sprintf("using existing variant %s", existing.ID))
	}

	changed := catalog.ChangedFields(fields, catalog.VariantFields, func(f string) (any, bool) {
		return catalog.VariantValue(existing, f)
	})
	if len(changed) == 0 {
		return succeed("variant unchanged")
	}

	ac.Metadata[MetaVariantOutcome] = OutcomeUpdated
	if ac.DryRun {
		return succeed(fmt.Sprintf("variant %s would be updated", existing.ID))
	}
	if _, err := a.catalog.UpdateVariant(ctx, existing.ID, catalog.VariantPatchFromFields(changed)); err != nil {
		ac.Metadata[MetaVariantOutcome] = OutcomeUnchanged
		return writeFailure("failed to update variant", conflicts.EntityVariant, types.FieldVariantSKU, err)
	}
	return succeed(fmt.Sprintf("updated %d variant field(s)", len(changed)))
}

func (a *ResolveVariant) create(ctx context.Context, ac *ActionContext, productID, sku string, fields map[string]any) ActionResult {
	if ac.DryRun {
		holder, err := a.attributeHolder(ctx, productID, sku, fields)
		if err != nil {
			return fail("failed to look up variant attributes", err)
		}
		if a.plan != nil {
			ac.Metadata[MetaVariantID] = a.plan.AddVariant(sku)
		}
		ac.Metadata[MetaVariantOutcome] = OutcomeCreated
		if holder != "" {
			ac.Metadata[MetaVariantConflict] = sku
			return succeed(fmt.Sprintf("variant %q would take the color and size of %q", sku, holder))
		}
		return succeed(fmt.Sprintf("variant %q would be created", sku))
	}

	in := catalog.VariantInput{
		ProductID:     productID,
		SKU:           sku,
		Name:          catalog.StringField(fields, types.FieldVariantName),
		Color:         catalog.StringField(fields, types.FieldVariantColor),
		Size:          catalog.StringField(fields, types.FieldVariantSize),
		Width:         catalog.FloatField(fields, types.FieldWidth),
		Drop:          catalog.FloatField(fields, types.FieldDrop),
		Height:        catalog.FloatField(fields, types.FieldHeight),
		Length:        catalog.FloatField(fields, types.FieldLength),
		Depth:         catalog.FloatField(fields, types.FieldDepth),
		Diameter:      catalog.FloatField(fields, types.FieldDiameter),
		DimensionUnit: catalog.StringField(fields, catalog.FieldDimensionUnit),
		Weight:        catalog.FloatField(fields, types.FieldWeight),
	}
	if mtm := catalog.BoolField(fields, types.FieldMadeToMeasure); mtm != nil {
		in.MadeToMeasure = *mtm
	}

	v, err := a.catalog.CreateVariant(ctx, in)
	if err != nil {
		field := types.FieldVariantSKU
		if cv, ok := catalog.AsViolation(err); ok && cv.Kind == catalog.ConstraintVariantAttributes {
			field = types.FieldVariantSize
		}
		return writeFailure("failed to create variant", conflicts.EntityVariant, field, err)
	}
	ac.Metadata[MetaVariantID] = v.ID
	ac.Metadata[MetaVariantOutcome] = OutcomeCreated
	return succeed(fmt.Sprintf("created variant %s", v.ID))
}

// attributeHolder returns the SKU of a stored or planned variant already
// holding the row's color and size under productID
func (a *ResolveVariant) attributeHolder(ctx context.Context, productID, sku string, fields map[string]any) (string, error) {
	color := catalog.StringField(fields, types.FieldVariantColor)
	size := catalog.StringField(fields, types.FieldVariantSize)
	if color == nil && size == nil {
		return "", nil
	}
	var c, sz string
	if color != nil {
		c = *color
	}
	if size != nil {
		sz = *size
	}

	if !IsPlanned(productID) {
		v, err := a.catalog.FindVariantByAttributes(ctx, productID, c, sz)
		if err == nil {
			return v.SKU, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return "", err
		}
	}
	if a.plan != nil {
		if holder, ok := a.plan.ClaimVariantAttributes(productID, c, sz, sku); !ok {
			return holder, nil
		}
	}
	return "", nil
}

// variantFields overlays extracted dimensions onto the row where no explicit
// dimension column was mapped
func variantFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, dim := range types.DimensionFields {
		if !catalog.IsBlank(out[dim]) {
			continue
		}
		if v, ok := fields[ExtractedPrefix+dim]; ok {
			out[dim] = v
		}
	}
	return out
}
