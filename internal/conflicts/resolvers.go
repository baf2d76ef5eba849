package conflicts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/types"
)

// maxSuffixAttempts bounds the "-n" probes before falling back to a random suffix
const maxSuffixAttempts = 20

// Resolver handles one kind of conflict
type Resolver interface {
	// Strategy names the strategy that will be applied to c
	Strategy(c Conflict) string
	Resolve(ctx context.Context, c Conflict) (Resolution, error)
}

// SKUResolver handles duplicate product and variant SKUs
type SKUResolver struct {
	catalog  catalog.Catalog
	strategy SKUStrategy
	allow    bool
}

func (r *SKUResolver) Strategy(Conflict) string { return string(r.strategy) }

func (r *SKUResolver) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	existingID, err := r.existingID(ctx, c)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	switch r.strategy {
	case SKUGenerateUnique:
		sku, err := uniqueValue(ctx, c.Value, func(ctx context.Context, candidate string) (bool, error) {
			id, err := r.existingID(ctx, Conflict{Entity: c.Entity, Value: candidate})
			if errors.Is(err, catalog.ErrNotFound) {
				return false, nil
			}
			return id != "", err
		})
		if err != nil {
			return nil, err
		}
		return Retry{
			Why:      fmt.Sprintf("sku %q exists, retrying as %q", c.Value, sku),
			Modified: map[string]any{c.Field: sku},
		}, nil

	case SKUUpdateExisting:
		if !r.allow {
			return Skip{Why: fmt.Sprintf("sku %q exists and updates are not allowed", c.Value), ExistingID: existingID}, nil
		}
		if existingID == "" {
			return Fail{Why: fmt.Sprintf("sku %q conflicted but the existing record was not found", c.Value)}, nil
		}
		names := catalog.ProductFields
		if c.Entity == EntityVariant {
			names = catalog.VariantFields
		}
		fields := make(map[string]any)
		for _, name := range names {
			if v, ok := c.Fields[name]; ok && name != c.Field && !catalog.IsBlank(v) {
				fields[name] = v
			}
		}
		return UpdateExisting{
			Why:        fmt.Sprintf("sku %q exists, updating existing %s", c.Value, c.Entity),
			Entity:     c.Entity,
			ExistingID: existingID,
			Fields:     fields,
		}, nil

	default:
		return Skip{Why: fmt.Sprintf("sku %q already exists", c.Value), ExistingID: existingID}, nil
	}
}

func (r *SKUResolver) existingID(ctx context.Context, c Conflict) (string, error) {
	if c.Entity == EntityProduct {
		p, err := r.catalog.FindProductBySKU(ctx, c.Value)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	}
	v, err := r.catalog.FindVariantBySKU(ctx, c.Value)
	if err != nil {
		return "", err
	}
	return v.ID, nil
}

// BarcodeResolver handles barcodes already held by another variant
type BarcodeResolver struct {
	catalog  catalog.Catalog
	strategy BarcodeStrategy
	allow    bool
}

func (r *BarcodeResolver) Strategy(Conflict) string { return string(r.strategy) }

func (r *BarcodeResolver) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	switch r.strategy {
	case BarcodeRemove:
		return Retry{
			Why:      fmt.Sprintf("barcode %q is taken, importing without it", c.Value),
			Modified: map[string]any{types.FieldBarcode: ""},
		}, nil

	case BarcodeReassign:
		existing, err := r.catalog.FindBarcode(ctx, c.Value)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Fail{Why: fmt.Sprintf("barcode %q conflicted but was not found", c.Value)}, nil
			}
			return nil, err
		}
		if existing.VariantID != nil && *existing.VariantID == c.VariantID {
			return Skip{Why: fmt.Sprintf("barcode %q already assigned to this variant", c.Value), ExistingID: existing.ID}, nil
		}
		if !r.allow {
			return Skip{Why: fmt.Sprintf("barcode %q is taken and reassignment is not allowed", c.Value), ExistingID: existing.ID}, nil
		}
		return UpdateExisting{
			Why:        fmt.Sprintf("reassigning barcode %q", c.Value),
			Entity:     EntityBarcode,
			ExistingID: existing.ID,
			Fields:     map[string]any{types.FieldBarcode: c.Value, "variant_id": c.VariantID},
		}, nil

	default:
		return Skip{Why: fmt.Sprintf("barcode %q is already assigned", c.Value)}, nil
	}
}

// VariantResolver handles product+color+size collisions
type VariantResolver struct {
	catalog         catalog.Catalog
	strategy        VariantStrategy
	allowMerging    bool
	allowDimensions bool
}

func (r *VariantResolver) Strategy(Conflict) string { return string(r.strategy) }

func (r *VariantResolver) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	color := stringValue(c.Fields, types.FieldVariantColor)
	size := stringValue(c.Fields, types.FieldVariantSize)

	existing, err := r.catalog.FindVariantByAttributes(ctx, c.ProductID, color, size)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	var existingID string
	if existing != nil {
		existingID = existing.ID
	}

	switch r.strategy {
	case VariantMergeData:
		if !r.allowMerging {
			return Skip{Why: "variant exists and merging is not allowed", ExistingID: existingID}, nil
		}
		if existing == nil {
			return Fail{Why: "variant attributes conflicted but the existing variant was not found"}, nil
		}
		names := make([]string, 0, len(catalog.VariantFields))
		for _, name := range catalog.VariantFields {
			switch {
			case name == types.FieldVariantSKU, name == types.FieldVariantColor, name == types.FieldVariantSize:
				continue
			case (types.IsDimensionField(name) || name == catalog.FieldDimensionUnit) && !r.allowDimensions:
				continue
			}
			names = append(names, name)
		}
		changed := catalog.ChangedFields(c.Fields, names, func(f string) (any, bool) {
			return catalog.VariantValue(existing, f)
		})
		if len(changed) == 0 {
			return Skip{Why: "variant exists with identical data", ExistingID: existingID}, nil
		}
		return UpdateExisting{
			Why:        fmt.Sprintf("merging %d changed field(s) into existing variant", len(changed)),
			Entity:     EntityVariant,
			ExistingID: existingID,
			Fields:     changed,
		}, nil

	case VariantModifyAttributes:
		for _, field := range []string{types.FieldVariantSize, types.FieldVariantColor} {
			base := stringValue(c.Fields, field)
			if base == "" {
				continue
			}
			for n := 2; n <= maxSuffixAttempts; n++ {
				candidate := fmt.Sprintf("%s %d", base, n)
				probeColor, probeSize := color, size
				if field == types.FieldVariantSize {
					probeSize = candidate
				} else {
					probeColor = candidate
				}
				_, err := r.catalog.FindVariantByAttributes(ctx, c.ProductID, probeColor, probeSize)
				if errors.Is(err, catalog.ErrNotFound) {
					return Retry{
						Why:      fmt.Sprintf("variant exists, retrying with %s %q", field, candidate),
						Modified: map[string]any{field: candidate},
					}, nil
				}
				if err != nil {
					return nil, err
				}
			}
		}
		return Skip{Why: "variant exists and no attribute could be modified", ExistingID: existingID}, nil

	default:
		return Skip{Why: "variant with these attributes exists, using it", ExistingID: existingID}, nil
	}
}

// FieldResolver handles any other unique column, with a per-field strategy
type FieldResolver struct {
	strategies map[string]FieldStrategy
	fallback   FieldStrategy
}

func (r *FieldResolver) strategyFor(field string) FieldStrategy {
	if s, ok := r.strategies[field]; ok && s != "" {
		return s
	}
	return r.fallback
}

func (r *FieldResolver) Strategy(c Conflict) string { return string(r.strategyFor(c.Field)) }

func (r *FieldResolver) Resolve(_ context.Context, c Conflict) (Resolution, error) {
	switch r.strategyFor(c.Field) {
	case FieldGenerateUnique:
		value := c.Value + "-" + shortID()
		return Retry{Why: fmt.Sprintf("%s %q exists, retrying as %q", c.Field, c.Value, value), Modified: map[string]any{c.Field: value}}, nil
	case FieldAppendSuffix:
		value := fmt.Sprintf("%s-%d", c.Value, c.Row)
		return Retry{Why: fmt.Sprintf("%s %q exists, retrying as %q", c.Field, c.Value, value), Modified: map[string]any{c.Field: value}}, nil
	case FieldRemove:
		return Retry{Why: fmt.Sprintf("%s %q exists, importing without it", c.Field, c.Value), Modified: map[string]any{c.Field: ""}}, nil
	default:
		return Skip{Why: fmt.Sprintf("%s %q already exists", c.Field, c.Value)}, nil
	}
}

// uniqueValue probes base-1, base-2, ... and falls back to a random suffix
func uniqueValue(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	for n := 1; n <= maxSuffixAttempts; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return base + "-" + shortID(), nil
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func stringValue(fields map[string]any, key string) string {
	if s := catalog.StringField(fields, key); s != nil {
		return *s
	}
	return ""
}
