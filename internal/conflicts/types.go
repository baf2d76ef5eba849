// Package conflicts decides what to do when persisting an import row
// collides with a unique constraint in the catalog.
package conflicts

import (
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/catalog"
)

// Kind is the class of a uniqueness conflict
type Kind int

const (
	KindDuplicateSKU Kind = iota + 1
	KindDuplicateBarcode
	KindVariantAttributes
	KindUniqueField
)

var kindNames = map[Kind]string{
	KindDuplicateSKU:      "duplicate_sku",
	KindDuplicateBarcode:  "duplicate_barcode",
	KindVariantAttributes: "variant_attributes",
	KindUniqueField:       "unique_field",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var constraintKinds = map[catalog.ConstraintKind]Kind{
	catalog.ConstraintSKU:               KindDuplicateSKU,
	catalog.ConstraintBarcode:           KindDuplicateBarcode,
	catalog.ConstraintVariantAttributes: KindVariantAttributes,
	catalog.ConstraintUniqueField:       KindUniqueField,
}

// KindOf classifies a catalog violation
func KindOf(v *catalog.ConstraintViolation) Kind {
	if k, ok := constraintKinds[v.Kind]; ok {
		return k
	}
	return KindUniqueField
}

// Entities a conflict can involve
const (
	EntityProduct = "product"
	EntityVariant = "variant"
	EntityBarcode = "barcode"
)

// Conflict describes one collision raised while persisting a row
type Conflict struct {
	Kind      Kind
	Violation *catalog.ConstraintViolation
	// Entity is the record type whose write collided
	Entity string
	// Field is the row field holding the colliding value
	Field string
	Value string
	Row   int
	// Fields is a read-only view of the row being written
	Fields map[string]any
	// ProductID and VariantID identify the records the row resolved so far
	ProductID string
	VariantID string
}

// Resolution is the outcome of resolving a conflict. It is one of Skip,
// UpdateExisting, Retry or Fail.
type Resolution interface {
	Reason() string
	isResolution()
}

// Skip leaves the existing record in place and counts the row as skipped
type Skip struct {
	Why        string
	ExistingID string
}

// UpdateExisting writes Fields onto the existing record instead of inserting
type UpdateExisting struct {
	Why        string
	Entity     string
	ExistingID string
	Fields     map[string]any
}

// Retry re-attempts the row once with Modified merged over its fields.
// An empty string value removes the field.
type Retry struct {
	Why      string
	Modified map[string]any
}

// Fail counts the row as failed
type Fail struct {
	Why string
}

func (r Skip) Reason() string           { return r.Why }
func (r UpdateExisting) Reason() string { return r.Why }
func (r Retry) Reason() string          { return r.Why }
func (r Fail) Reason() string           { return r.Why }

func (Skip) isResolution()           {}
func (UpdateExisting) isResolution() {}
func (Retry) isResolution()          {}
func (Fail) isResolution()           {}

// Outcome names a resolution variant for statistics and logs
func Outcome(r Resolution) string {
	switch r.(type) {
	case Skip:
		return "skip"
	case UpdateExisting:
		return "update_existing"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// Strategies per conflict kind
type (
	SKUStrategy     string
	BarcodeStrategy string
	VariantStrategy string
	FieldStrategy   string
)

const (
	SKUSkip           SKUStrategy = "skip"
	SKUGenerateUnique SKUStrategy = "generate_unique"
	SKUUpdateExisting SKUStrategy = "update_existing"

	BarcodeSkip     BarcodeStrategy = "skip"
	BarcodeRemove   BarcodeStrategy = "remove_barcode"
	BarcodeReassign BarcodeStrategy = "reassign"

	VariantUseExisting      VariantStrategy = "use_existing"
	VariantMergeData        VariantStrategy = "merge_data"
	VariantModifyAttributes VariantStrategy = "modify_attributes"

	FieldSkip           FieldStrategy = "skip"
	FieldGenerateUnique FieldStrategy = "generate_unique"
	FieldAppendSuffix   FieldStrategy = "append_suffix"
	FieldRemove         FieldStrategy = "remove_field"
)

var ErrInvalidStrategy = errors.New("invalid conflict strategy")

// Config selects the strategy per conflict kind and the permissions gating them
type Config struct {
	SKUStrategy           SKUStrategy              `json:"sku_strategy" yaml:"sku_strategy"`
	BarcodeStrategy       BarcodeStrategy          `json:"barcode_strategy" yaml:"barcode_strategy"`
	VariantStrategy       VariantStrategy          `json:"variant_strategy" yaml:"variant_strategy"`
	FieldStrategies       map[string]FieldStrategy `json:"field_strategies,omitempty" yaml:"field_strategies"`
	DefaultFieldStrategy  FieldStrategy            `json:"default_field_strategy" yaml:"default_field_strategy"`
	AllowUpdates          bool                     `json:"allow_updates" yaml:"allow_updates"`
	AllowReassignment     bool                     `json:"allow_reassignment" yaml:"allow_reassignment"`
	AllowMerging          bool                     `json:"allow_merging" yaml:"allow_merging"`
	AllowDimensionUpdates bool                     `json:"allow_dimension_updates" yaml:"allow_dimension_updates"`
}

// DefaultConfig skips every conflict and allows nothing destructive
func DefaultConfig() Config {
	return Config{
		SKUStrategy:          SKUSkip,
		BarcodeStrategy:      BarcodeSkip,
		VariantStrategy:      VariantUseExisting,
		DefaultFieldStrategy: FieldSkip,
	}
}

// WithDefaults fills unset strategies from DefaultConfig
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.SKUStrategy == "" {
		c.SKUStrategy = d.SKUStrategy
	}
	if c.BarcodeStrategy == "" {
		c.BarcodeStrategy = d.BarcodeStrategy
	}
	if c.VariantStrategy == "" {
		c.VariantStrategy = d.VariantStrategy
	}
	if c.DefaultFieldStrategy == "" {
		c.DefaultFieldStrategy = d.DefaultFieldStrategy
	}
	return c
}

// Validate checks every strategy against its enum; empty values are allowed
func (c Config) Validate() error {
	switch c.SKUStrategy {
	case "", SKUSkip, SKUGenerateUnique, SKUUpdateExisting:
	default:
		return fmt.Errorf("%w: sku_strategy %q", ErrInvalidStrategy, c.SKUStrategy)
	}
	switch c.BarcodeStrategy {
	case "", BarcodeSkip, BarcodeRemove, BarcodeReassign:
	default:
		return fmt.Errorf("%w: barcode_strategy %q", ErrInvalidStrategy, c.BarcodeStrategy)
	}
	switch c.VariantStrategy {
	case "", VariantUseExisting, VariantMergeData, VariantModifyAttributes:
	default:
		return fmt.Errorf("%w: variant_strategy %q", ErrInvalidStrategy, c.VariantStrategy)
	}
	if err := validateFieldStrategy("default_field_strategy", c.DefaultFieldStrategy); err != nil {
		return err
	}
	for field, s := range c.FieldStrategies {
		if err := validateFieldStrategy("field_strategies."+field, s); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldStrategy(name string, s FieldStrategy) error {
	switch s {
	case "", FieldSkip, FieldGenerateUnique, FieldAppendSuffix, FieldRemove:
		return nil
	}
	return fmt.Errorf("%w: %s %q", ErrInvalidStrategy, name, s)
}
