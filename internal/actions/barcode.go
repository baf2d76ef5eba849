package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/kosarica/import-service/internal/types"
)

// AssignBarcode attaches the row's barcode to its variant, or draws one from
// the pool when auto-assignment is enabled and the row has none. Re-running a
// row whose variant already holds the barcode changes nothing.
type AssignBarcode struct {
	catalog catalog.Catalog
	plan    *Plan
}

func NewAssignBarcode(cat catalog.Catalog, plan *Plan) *AssignBarcode {
	return &AssignBarcode{catalog: cat, plan: plan}
}

func (a *AssignBarcode) Name() string   { return "assign_barcode" }
func (a *AssignBarcode) Required() bool { return true }

func (a *AssignBarcode) Execute(ctx context.Context, ac *ActionContext) ActionResult {
	variantID := ac.MetaString(MetaVariantID)
	if variantID == "" {
		return succeed("no variant to attach a barcode to")
	}

	code := ac.String(types.FieldBarcode)
	if code == "" {
		if !ac.Config.Features.BarcodeAutoAssign {
			return succeed("no barcode on row")
		}
		return a.fromPool(ctx, ac, variantID)
	}

	if ac.DryRun {
		return a.check(ctx, ac, variantID, code)
	}

	barcodeType := ac.String(types.FieldBarcodeType)
	if barcodeType == "" {
		barcodeType = catalog.BarcodeType(code)
	}
	if _, err := a.catalog.AssignBarcode(ctx, variantID, code, barcodeType); err != nil {
		return writeFailure(fmt.Sprintf("failed to assign barcode %s", code), conflicts.EntityBarcode, types.FieldBarcode, err)
	}
	ac.Metadata[MetaBarcodeOutcome] = OutcomeAssigned
	return succeed(fmt.Sprintf("barcode %s assigned", code))
}

// check predicts whether assigning code would collide, without writing
func (a *AssignBarcode) check(ctx context.Context, ac *ActionContext, variantID, code string) ActionResult {
	existing, err := a.catalog.FindBarcode(ctx, code)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
	case err != nil:
		return fail("failed to look up barcode", err)
	case existing.VariantID != nil && *existing.VariantID != variantID:
		ac.Metadata[MetaBarcodeConflict] = code
		return succeed(fmt.Sprintf("barcode %s is held by another variant", code))
	}

	if a.plan != nil {
		if _, ok := a.plan.ClaimBarcode(code, variantID); !ok {
			ac.Metadata[MetaBarcodeConflict] = code
			return succeed(fmt.Sprintf("barcode %s is used by an earlier row", code))
		}
	}
	ac.Metadata[MetaBarcodeOutcome] = OutcomeAssigned
	return succeed(fmt.Sprintf("barcode %s would be assigned", code))
}

func (a *AssignBarcode) fromPool(ctx context.Context, ac *ActionContext, variantID string) ActionResult {
	if !IsPlanned(variantID) {
		held, err := a.catalog.FindBarcodeByVariant(ctx, variantID)
		if err == nil {
			return succeed(fmt.Sprintf("variant already has barcode %s", held.Code))
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return fail("failed to look up variant barcode", err)
		}
	}

	if ac.DryRun {
		ac.Metadata[MetaBarcodeOutcome] = OutcomeAssigned
		return succeed("barcode would be assigned from the pool")
	}

	b, err := a.catalog.AssignBarcodeFromPool(ctx, variantID, ac.Config.BarcodeType)
	if errors.Is(err, catalog.ErrPoolExhausted) {
		ac.Warn("no free %s barcode left in the pool", ac.Config.BarcodeType)
		return succeed("barcode pool exhausted")
	}
	if err != nil {
		return fail("failed to assign barcode from pool", err)
	}
	ac.Metadata[MetaBarcodeOutcome] = OutcomeAssigned
	return succeed(fmt.Sprintf("barcode %s assigned from pool", b.Code))
}
