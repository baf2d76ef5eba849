// Package catalog is the product/variant/barcode/pricing store the import
// pipeline writes into. It exposes a create-or-update contract and reports
// uniqueness violations as typed errors so callers never inspect messages.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by lookups when no record matches
	ErrNotFound = errors.New("catalog: not found")
	// ErrStore marks infrastructure failures (connection loss, timeouts)
	ErrStore = errors.New("catalog: store unavailable")
	// ErrPoolExhausted is returned when no free barcode of the requested type remains
	ErrPoolExhausted = errors.New("catalog: barcode pool exhausted")
)

// Product is a parent record grouping variants
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SKU           *string   `json:"sku,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Brand         *string   `json:"brand,omitempty"`
	Category      *string   `json:"category,omitempty"`
	MadeToMeasure bool      `json:"made_to_measure"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Variant is a sellable unit of a product
type Variant struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	SKU           string    `json:"sku"`
	Name          *string   `json:"name,omitempty"`
	Color         *string   `json:"color,omitempty"`
	Size          *string   `json:"size,omitempty"`
	Width         *float64  `json:"width,omitempty"`
	Drop          *float64  `json:"drop,omitempty"`
	Height        *float64  `json:"height,omitempty"`
	Length        *float64  `json:"length,omitempty"`
	Depth         *float64  `json:"depth,omitempty"`
	Diameter      *float64  `json:"diameter,omitempty"`
	DimensionUnit *string   `json:"dimension_unit,omitempty"`
	Weight        *float64  `json:"weight,omitempty"`
	MadeToMeasure bool      `json:"made_to_measure"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Barcode is a code that is either free in the pool or assigned to a variant
type Barcode struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Type       string     `json:"type"`
	VariantID  *string    `json:"variant_id,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
}

// ProductInput carries the fields of a new product
type ProductInput struct {
	Name          string
	SKU           *string
	Description   *string
	Brand         *string
	Category      *string
	MadeToMeasure bool
}

// ProductPatch lists the fields to change on an existing product; nil means unchanged
type ProductPatch struct {
	Name          *string
	SKU           *string
	Description   *string
	Brand         *string
	Category      *string
	MadeToMeasure *bool
}

// IsEmpty reports whether the patch changes nothing
func (p ProductPatch) IsEmpty() bool {
	return p == ProductPatch{}
}

// VariantInput carries the fields of a new variant
type VariantInput struct {
	ProductID     string
	SKU           string
	Name          *string
	Color         *string
	Size          *string
	Width         *float64
	Drop          *float64
	Height        *float64
	Length        *float64
	Depth         *float64
	Diameter      *float64
	DimensionUnit *string
	Weight        *float64
	MadeToMeasure bool
}

// VariantPatch lists the fields to change on an existing variant; nil means unchanged
type VariantPatch struct {
	SKU           *string
	Name          *string
	Color         *string
	Size          *string
	Width         *float64
	Drop          *float64
	Height        *float64
	Length        *float64
	Depth         *float64
	Diameter      *float64
	DimensionUnit *string
	Weight        *float64
	MadeToMeasure *bool
}

// IsEmpty reports whether the patch changes nothing
func (p VariantPatch) IsEmpty() bool {
	return p == VariantPatch{}
}

// Catalog is the store contract consumed by the row actions and conflict resolvers.
// Lookups return ErrNotFound when nothing matches. Writes that collide with a
// unique constraint return a *ConstraintViolation.
type Catalog interface {
	FindProductByName(ctx context.Context, name string) (*Product, error)
	FindProductBySKU(ctx context.Context, sku string) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error)

	FindVariantBySKU(ctx context.Context, sku string) (*Variant, error)
	FindVariantByAttributes(ctx context.Context, productID, color, size string) (*Variant, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	CreateVariant(ctx context.Context, in VariantInput) (*Variant, error)
	UpdateVariant(ctx context.Context, id string, patch VariantPatch) (*Variant, error)

	FindBarcode(ctx context.Context, code string) (*Barcode, error)
	FindBarcodeByVariant(ctx context.Context, variantID string) (*Barcode, error)
	AssignBarcode(ctx context.Context, variantID, code, barcodeType string) (*Barcode, error)
	ReassignBarcode(ctx context.Context, code, variantID string) (*Barcode, error)
	AssignBarcodeFromPool(ctx context.Context, variantID, barcodeType string) (*Barcode, error)

	SetChannelPrice(ctx context.Context, variantID, channel string, price float64) error
}
