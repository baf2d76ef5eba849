package catalog

import (
	"context"
	"testing"

	"github.com/kosarica/import-service/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalogProducts(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()

	p, err := c.CreateProduct(ctx, ProductInput{Name: "Roller Blind", SKU: types.StringPtr("RB")})
	require.NoError(t, err)

	found, err := c.FindProductByName(ctx, "roller blind")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = c.FindProductByName(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.CreateProduct(ctx, ProductInput{Name: "Other", SKU: types.StringPtr("RB")})
	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, ConstraintSKU, v.Kind)

	updated, err := c.UpdateProduct(ctx, p.ID, ProductPatch{Brand: types.StringPtr("Acme")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", *updated.Brand)
	assert.Equal(t, "Roller Blind", updated.Name)
}

func TestMemoryCatalogVariantConstraints(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	p, err := c.CreateProduct(ctx, ProductInput{Name: "Tee"})
	require.NoError(t, err)

	_, err = c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "TEE-RED-S", Color: types.StringPtr("red"), Size: types.StringPtr("S")})
	require.NoError(t, err)

	_, err = c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "TEE-RED-S"})
	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, ConstraintSKU, v.Kind)

	_, err = c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "TEE-2", Color: types.StringPtr("Red"), Size: types.StringPtr("s")})
	v, ok = AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, ConstraintVariantAttributes, v.Kind)

	// no attributes means no compound key
	_, err = c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "TEE-3"})
	require.NoError(t, err)
	_, err = c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "TEE-4"})
	require.NoError(t, err)

	found, err := c.FindVariantByAttributes(ctx, p.ID, "red", "S")
	require.NoError(t, err)
	assert.Equal(t, "TEE-RED-S", found.SKU)

	_, err = c.CreateVariant(ctx, VariantInput{ProductID: "missing", SKU: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCatalogBarcodes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	p, _ := c.CreateProduct(ctx, ProductInput{Name: "Tee"})
	a, _ := c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "A"})
	b, _ := c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "B"})

	_, err := c.AssignBarcode(ctx, a.ID, "5901234123457", BarcodeTypeEAN13)
	require.NoError(t, err)

	// same variant again is a no-op
	_, err = c.AssignBarcode(ctx, a.ID, "5901234123457", BarcodeTypeEAN13)
	require.NoError(t, err)

	_, err = c.AssignBarcode(ctx, b.ID, "5901234123457", BarcodeTypeEAN13)
	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, ConstraintBarcode, v.Kind)

	moved, err := c.ReassignBarcode(ctx, "5901234123457", b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, *moved.VariantID)

	_, err = c.AssignBarcodeFromPool(ctx, a.ID, BarcodeTypeEAN13)
	assert.ErrorIs(t, err, ErrPoolExhausted)

	c.SeedBarcodePool(BarcodeTypeEAN13, "4006381333931", "0123456789012")
	pooled, err := c.AssignBarcodeFromPool(ctx, a.ID, BarcodeTypeEAN13)
	require.NoError(t, err)
	assert.Equal(t, "0123456789012", pooled.Code)
	assert.Equal(t, a.ID, *pooled.VariantID)
}

func TestMemoryCatalogChannelPrices(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	p, _ := c.CreateProduct(ctx, ProductInput{Name: "Tee"})
	v, _ := c.CreateVariant(ctx, VariantInput{ProductID: p.ID, SKU: "A"})

	require.NoError(t, c.SetChannelPrice(ctx, v.ID, "retail", 19.99))
	require.NoError(t, c.SetChannelPrice(ctx, v.ID, "retail", 17.5))

	price, ok := c.ChannelPrice(v.ID, "retail")
	assert.True(t, ok)
	assert.Equal(t, 17.5, price)

	assert.ErrorIs(t, c.SetChannelPrice(ctx, "missing", "retail", 1), ErrNotFound)
}
