package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCatalog is an in-process Catalog that enforces the same unique
// constraints as the PostgreSQL schema. It backs local CLI runs and tests.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*Product
	variants map[string]*Variant
	barcodes map[string]*Barcode // by code
	prices   map[string]map[string]float64
	now      func() time.Time
}

// NewMemoryCatalog creates an empty in-memory catalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[string]*Product),
		variants: make(map[string]*Variant),
		barcodes: make(map[string]*Barcode),
		prices:   make(map[string]map[string]float64),
		now:      time.Now,
	}
}

// SeedBarcodePool adds free barcodes of the given type to the pool
func (c *MemoryCatalog) SeedBarcodePool(barcodeType string, codes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, code := range codes {
		if _, exists := c.barcodes[code]; exists {
			continue
		}
		c.barcodes[code] = &Barcode{ID: uuid.NewString(), Code: code, Type: barcodeType}
	}
}

// Products returns every product ordered by name
func (c *MemoryCatalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Variants returns every variant ordered by SKU
func (c *MemoryCatalog) Variants() []Variant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Variant, 0, len(c.variants))
	for _, v := range c.variants {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// ChannelPrice returns the stored price of a variant on a channel
func (c *MemoryCatalog) ChannelPrice(variantID, channel string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[variantID][channel]
	return p, ok
}

func (c *MemoryCatalog) FindProductByName(_ context.Context, name string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryCatalog) FindProductBySKU(_ context.Context, sku string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p := c.productBySKU(sku); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *MemoryCatalog) CreateProduct(_ context.Context, in ProductInput) (*Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if in.SKU != nil && *in.SKU != "" && c.productBySKU(*in.SKU) != nil {
		return nil, NewConstraintViolation(ProductsSKUKey, "products", *in.SKU)
	}
	now := c.now()
	p := &Product{
		ID:            uuid.NewString(),
		Name:          in.Name,
		SKU:           in.SKU,
		Description:   in.Description,
		Brand:         in.Brand,
		Category:      in.Category,
		MadeToMeasure: in.MadeToMeasure,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.products[p.ID] = p
	cp := *p
	return &cp, nil
}

func (c *MemoryCatalog) UpdateProduct(_ context.Context, id string, patch ProductPatch) (*Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.SKU != nil && *patch.SKU != "" {
		if other := c.productBySKU(*patch.SKU); other != nil && other.ID != id {
			return nil, NewConstraintViolation(ProductsSKUKey, "products", *patch.SKU)
		}
	}
	setString(&p.Name, patch.Name)
	setOptional(&p.SKU, patch.SKU)
	setOptional(&p.Description, patch.Description)
	setOptional(&p.Brand, patch.Brand)
	setOptional(&p.Category, patch.Category)
	if patch.MadeToMeasure != nil {
		p.MadeToMeasure = *patch.MadeToMeasure
	}
	p.UpdatedAt = c.now()
	cp := *p
	return &cp, nil
}

func (c *MemoryCatalog) FindVariantBySKU(_ context.Context, sku string) (*Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v := c.variantBySKU(sku); v != nil {
		cp := *v
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (c *MemoryCatalog) FindVariantByAttributes(_ context.Context, productID, color, size string) (*Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v := c.variantByAttributes(productID, color, size, ""); v != nil {
		cp := *v
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (c *MemoryCatalog) GetVariant(_ context.Context, id string) (*Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (c *MemoryCatalog) CreateVariant(_ context.Context, in VariantInput) (*Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[in.ProductID]; !ok {
		return nil, ErrNotFound
	}
	if c.variantBySKU(in.SKU) != nil {
		return nil, NewConstraintViolation(VariantsSKUKey, "variants", in.SKU)
	}
	if hasAttributes(in.Color, in.Size) && c.variantByAttributes(in.ProductID, deref(in.Color), deref(in.Size), "") != nil {
		return nil, NewConstraintViolation(VariantsProductColorSizeKey, "variants", deref(in.Color)+"/"+deref(in.Size))
	}
	now := c.now()
	v := &Variant{
		ID:            uuid.NewString(),
		ProductID:     in.ProductID,
		SKU:           in.SKU,
		Name:          in.Name,
		Color:         in.Color,
		Size:          in.Size,
		Width:         in.Width,
		Drop:          in.Drop,
		Height:        in.Height,
		Length:        in.Length,
		Depth:         in.Depth,
		Diameter:      in.Diameter,
		DimensionUnit: in.DimensionUnit,
		Weight:        in.Weight,
		MadeToMeasure: in.MadeToMeasure,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.variants[v.ID] = v
	cp := *v
	return &cp, nil
}

func (c *MemoryCatalog) UpdateVariant(_ context.Context, id string, patch VariantPatch) (*Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.variants[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.SKU != nil {
		if other := c.variantBySKU(*patch.SKU); other != nil && other.ID != id {
			return nil, NewConstraintViolation(VariantsSKUKey, "variants", *patch.SKU)
		}
	}
	color, size := v.Color, v.Size
	setOptional(&color, patch.Color)
	setOptional(&size, patch.Size)
	if hasAttributes(color, size) && c.variantByAttributes(v.ProductID, deref(color), deref(size), id) != nil {
		return nil, NewConstraintViolation(VariantsProductColorSizeKey, "variants", deref(color)+"/"+deref(size))
	}

	setString(&v.SKU, patch.SKU)
	setOptional(&v.Name, patch.Name)
	v.Color, v.Size = color, size
	setOptional(&v.Width, patch.Width)
	setOptional(&v.Drop, patch.Drop)
	setOptional(&v.Height, patch.Height)
	setOptional(&v.Length, patch.Length)
	setOptional(&v.Depth, patch.Depth)
	setOptional(&v.Diameter, patch.Diameter)
	setOptional(&v.DimensionUnit, patch.DimensionUnit)
	setOptional(&v.Weight, patch.Weight)
	if patch.MadeToMeasure != nil {
		v.MadeToMeasure = *patch.MadeToMeasure
	}
	v.UpdatedAt = c.now()
	cp := *v
	return &cp, nil
}

func (c *MemoryCatalog) FindBarcode(_ context.Context, code string) (*Barcode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.barcodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (c *MemoryCatalog) FindBarcodeByVariant(_ context.Context, variantID string) (*Barcode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var found *Barcode
	for _, b := range c.barcodes {
		if b.VariantID == nil || *b.VariantID != variantID {
			continue
		}
		if found == nil || b.Code < found.Code {
			found = b
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

// AssignBarcode attaches code to a variant. Claiming a free pool code is
// allowed; a code held by another variant is a violation.
func (c *MemoryCatalog) AssignBarcode(_ context.Context, variantID, code, barcodeType string) (*Barcode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.variants[variantID]; !ok {
		return nil, ErrNotFound
	}
	now := c.now()
	if b, exists := c.barcodes[code]; exists {
		if b.VariantID != nil && *b.VariantID != variantID {
			return nil, NewConstraintViolation(BarcodesCodeKey, "barcodes", code)
		}
		b.VariantID = &variantID
		if b.AssignedAt == nil {
			b.AssignedAt = &now
		}
		cp := *b
		return &cp, nil
	}
	b := &Barcode{ID: uuid.NewString(), Code: code, Type: barcodeType, VariantID: &variantID, AssignedAt: &now}
	c.barcodes[code] = b
	cp := *b
	return &cp, nil
}

func (c *MemoryCatalog) ReassignBarcode(_ context.Context, code, variantID string) (*Barcode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.barcodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := c.variants[variantID]; !ok {
		return nil, ErrNotFound
	}
	now := c.now()
	b.VariantID = &variantID
	b.AssignedAt = &now
	cp := *b
	return &cp, nil
}

func (c *MemoryCatalog) AssignBarcodeFromPool(_ context.Context, variantID, barcodeType string) (*Barcode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.variants[variantID]; !ok {
		return nil, ErrNotFound
	}
	codes := make([]string, 0, len(c.barcodes))
	for code, b := range c.barcodes {
		if b.VariantID == nil && (barcodeType == "" || b.Type == barcodeType) {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return nil, ErrPoolExhausted
	}
	sort.Strings(codes)
	b := c.barcodes[codes[0]]
	now := c.now()
	b.VariantID = &variantID
	b.AssignedAt = &now
	cp := *b
	return &cp, nil
}

func (c *MemoryCatalog) SetChannelPrice(_ context.Context, variantID, channel string, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.variants[variantID]; !ok {
		return ErrNotFound
	}
	if c.prices[variantID] == nil {
		c.prices[variantID] = make(map[string]float64)
	}
	c.prices[variantID][channel] = price
	return nil
}

func (c *MemoryCatalog) productBySKU(sku string) *Product {
	for _, p := range c.products {
		if p.SKU != nil && *p.SKU == sku {
			return p
		}
	}
	return nil
}

func (c *MemoryCatalog) variantBySKU(sku string) *Variant {
	for _, v := range c.variants {
		if v.SKU == sku {
			return v
		}
	}
	return nil
}

func (c *MemoryCatalog) variantByAttributes(productID, color, size, exceptID string) *Variant {
	for _, v := range c.variants {
		if v.ID == exceptID || v.ProductID != productID || !hasAttributes(v.Color, v.Size) {
			continue
		}
		if strings.EqualFold(deref(v.Color), color) && strings.EqualFold(deref(v.Size), size) {
			return v
		}
	}
	return nil
}

func hasAttributes(color, size *string) bool {
	return (color != nil && *color != "") || (size != nil && *size != "")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setOptional[T any](dst **T, v *T) {
	if v != nil {
		cp := *v
		*dst = &cp
	}
}
