package actions

import (
	"strings"
	"sync"
)

// plannedPrefix marks ids of records a dry run would create
const plannedPrefix = "planned:"

// Plan remembers what earlier rows of a dry run would have written so later
// rows resolve against it as if those writes had happened
type Plan struct {
	mu         sync.Mutex
	products   map[string]string
	variants   map[string]string
	barcodes   map[string]string
	// product|color|size of planned variants, to their SKU
	attributes map[string]string
}

// NewPlan returns an empty dry-run plan
func NewPlan() *Plan {
	return &Plan{
		products:   make(map[string]string),
		variants:   make(map[string]string),
		barcodes:   make(map[string]string),
		attributes: make(map[string]string),
	}
}

// IsPlanned reports whether id belongs to a record only a dry run created
func IsPlanned(id string) bool {
	return strings.HasPrefix(id, plannedPrefix)
}

// Product returns the planned id of a product by SKU or name
func (p *Plan) Product(sku, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sku != "" {
		if id, ok := p.products["sku:"+strings.ToLower(sku)]; ok {
			return id, true
		}
	}
	if name != "" {
		if id, ok := p.products["name:"+strings.ToLower(name)]; ok {
			return id, true
		}
	}
	return "", false
}

// AddProduct records a product the dry run would create and returns its id
func (p *Plan) AddProduct(sku, name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := plannedPrefix + "product:" + strings.ToLower(name)
	if sku != "" {
		id = plannedPrefix + "product:" + strings.ToLower(sku)
		p.products["sku:"+strings.ToLower(sku)] = id
	}
	if name != "" {
		p.products["name:"+strings.ToLower(name)] = id
	}
	return id
}

// Variant returns the planned id of a variant SKU
func (p *Plan) Variant(sku string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.variants[strings.ToLower(sku)]
	return id, ok
}

// AddVariant records a variant the dry run would create
func (p *Plan) AddVariant(sku string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := plannedPrefix + "variant:" + strings.ToLower(sku)
	p.variants[strings.ToLower(sku)] = id
	return id
}

// ClaimBarcode records that variantID would receive code. It returns the
// holder when another variant already claimed it.
func (p *Plan) ClaimBarcode(code, variantID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if holder, ok := p.barcodes[code]; ok && holder != variantID {
		return holder, false
	}
	p.barcodes[code] = variantID
	return variantID, true
}

// ClaimVariantAttributes records that sku would take the color and size
// combination under productID. It returns the SKU of an earlier planned
// variant holding the same combination.
func (p *Plan) ClaimVariantAttributes(productID, color, size, sku string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := productID + "|" + strings.ToLower(color) + "|" + strings.ToLower(size)
	if holder, ok := p.attributes[key]; ok && !strings.EqualFold(holder, sku) {
		return holder, false
	}
	p.attributes[key] = sku
	return sku, true
}
