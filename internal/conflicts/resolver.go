package conflicts

import (
	"context"
	"fmt"
	"sync"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/types"
)

// Stats counts conflicts seen during one stage run
type Stats struct {
	Detected   int            `json:"detected"`
	ByKind     map[string]int `json:"by_kind"`
	ByStrategy map[string]int `json:"by_strategy"`
	ByOutcome  map[string]int `json:"by_outcome"`
}

// ConflictResolver dispatches conflicts to the resolver registered for their kind
type ConflictResolver struct {
	resolvers map[Kind]Resolver

	mu    sync.Mutex
	stats Stats
}

// NewConflictResolver builds the resolver table from cfg
func NewConflictResolver(cat catalog.Catalog, cfg Config) *ConflictResolver {
	cfg = cfg.WithDefaults()
	return &ConflictResolver{
		resolvers: map[Kind]Resolver{
			KindDuplicateSKU: &SKUResolver{
				catalog:  cat,
				strategy: cfg.SKUStrategy,
				allow:    cfg.AllowUpdates,
			},
			KindDuplicateBarcode: &BarcodeResolver{
				catalog:  cat,
				strategy: cfg.BarcodeStrategy,
				allow:    cfg.AllowReassignment,
			},
			KindVariantAttributes: &VariantResolver{
				catalog:         cat,
				strategy:        cfg.VariantStrategy,
				allowMerging:    cfg.AllowMerging,
				allowDimensions: cfg.AllowDimensionUpdates,
			},
			KindUniqueField: &FieldResolver{
				strategies: cfg.FieldStrategies,
				fallback:   cfg.DefaultFieldStrategy,
			},
		},
		stats: newStats(),
	}
}

// Resolve classifies and resolves one conflict. An error means the catalog
// could not be consulted; the conflict itself never surfaces as an error.
func (r *ConflictResolver) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	resolver, ok := r.resolvers[c.Kind]
	if !ok {
		return nil, fmt.Errorf("no resolver registered for conflict kind %s", c.Kind)
	}
	strategy := resolver.Strategy(c)

	res, err := resolver.Resolve(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s conflict: %w", c.Kind, err)
	}

	r.mu.Lock()
	r.stats.Detected++
	r.stats.ByKind[c.Kind.String()]++
	r.stats.ByStrategy[strategy]++
	r.stats.ByOutcome[Outcome(res)]++
	r.mu.Unlock()

	recordConflict(c.Kind, strategy, Outcome(res))
	return res, nil
}

// Stats returns a copy of the counters
func (r *ConflictResolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := newStats()
	out.Detected = r.stats.Detected
	for k, v := range r.stats.ByKind {
		out.ByKind[k] = v
	}
	for k, v := range r.stats.ByStrategy {
		out.ByStrategy[k] = v
	}
	for k, v := range r.stats.ByOutcome {
		out.ByOutcome[k] = v
	}
	return out
}

func newStats() Stats {
	return Stats{
		ByKind:     map[string]int{},
		ByStrategy: map[string]int{},
		ByOutcome:  map[string]int{},
	}
}

// Apply performs an UpdateExisting resolution against the catalog
func Apply(ctx context.Context, cat catalog.Catalog, u UpdateExisting) error {
	switch u.Entity {
	case EntityProduct:
		patch := catalog.ProductPatchFromFields(u.Fields)
		if patch.IsEmpty() {
			return nil
		}
		if _, err := cat.UpdateProduct(ctx, u.ExistingID, patch); err != nil {
			return fmt.Errorf("failed to update product %s: %w", u.ExistingID, err)
		}
	case EntityVariant:
		patch := catalog.VariantPatchFromFields(u.Fields)
		if patch.IsEmpty() {
			return nil
		}
		if _, err := cat.UpdateVariant(ctx, u.ExistingID, patch); err != nil {
			return fmt.Errorf("failed to update variant %s: %w", u.ExistingID, err)
		}
	case EntityBarcode:
		code := stringValue(u.Fields, types.FieldBarcode)
		variantID := stringValue(u.Fields, "variant_id")
		if _, err := cat.ReassignBarcode(ctx, code, variantID); err != nil {
			return fmt.Errorf("failed to reassign barcode %s: %w", code, err)
		}
	default:
		return fmt.Errorf("cannot update unknown entity %q", u.Entity)
	}
	return nil
}
