package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, sku, description, brand, category, made_to_measure, created_at, updated_at`

const variantColumns = `id, product_id, sku, name, color, size, width, drop_length, height, length, depth,
	diameter, dimension_unit, weight, made_to_measure, created_at, updated_at`

const barcodeColumns = `id, code, type, variant_id, assigned_at`

// PostgresCatalog is the Catalog backed by the service database
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a catalog over the given pool
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) FindProductByName(ctx context.Context, name string) (*Product, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE lower(name) = lower($1)
		ORDER BY created_at
		LIMIT 1
	`, name)
	return scanProduct(row, "find product by name")
}

func (c *PostgresCatalog) FindProductBySKU(ctx context.Context, sku string) (*Product, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	return scanProduct(row, "find product by sku")
}

func (c *PostgresCatalog) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row, "get product")
}

func (c *PostgresCatalog) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	row := c.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, sku, description, brand, category, made_to_measure)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		uuid.NewString(), in.Name, in.SKU, in.Description, in.Brand, in.Category, in.MadeToMeasure,
	)
	return scanProduct(row, "create product", deref(in.SKU))
}

func (c *PostgresCatalog) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	row := c.pool.QueryRow(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			sku = COALESCE($3, sku),
			description = COALESCE($4, description),
			brand = COALESCE($5, brand),
			category = COALESCE($6, category),
			made_to_measure = COALESCE($7, made_to_measure),
			updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, patch.Name, patch.SKU, patch.Description, patch.Brand, patch.Category, patch.MadeToMeasure,
	)
	return scanProduct(row, "update product", deref(patch.SKU))
}

func (c *PostgresCatalog) FindVariantBySKU(ctx context.Context, sku string) (*Variant, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE sku = $1`, sku)
	return scanVariant(row, "find variant by sku")
}

func (c *PostgresCatalog) FindVariantByAttributes(ctx context.Context, productID, color, size string) (*Variant, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT `+variantColumns+` FROM variants
		WHERE product_id = $1
		  AND lower(COALESCE(color, '')) = lower($2)
		  AND lower(COALESCE(size, '')) = lower($3)
		LIMIT 1
	`, productID, color, size)
	return scanVariant(row, "find variant by attributes")
}

func (c *PostgresCatalog) GetVariant(ctx context.Context, id string) (*Variant, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id)
	return scanVariant(row, "get variant")
}

func (c *PostgresCatalog) CreateVariant(ctx context.Context, in VariantInput) (*Variant, error) {
	row := c.pool.QueryRow(ctx, `
		INSERT INTO variants (id, product_id, sku, name, color, size, width, drop_length, height, length,
			depth, diameter, dimension_unit, weight, made_to_measure)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+variantColumns,
		uuid.NewString(), in.ProductID, in.SKU, in.Name, in.Color, in.Size, in.Width, in.Drop, in.Height,
		in.Length, in.Depth, in.Diameter, in.DimensionUnit, in.Weight, in.MadeToMeasure,
	)
	return scanVariant(row, "create variant", in.SKU)
}

func (c *PostgresCatalog) UpdateVariant(ctx context.Context, id string, patch VariantPatch) (*Variant, error) {
	row := c.pool.QueryRow(ctx, `
		UPDATE variants SET
			sku = COALESCE($2, sku),
			name = COALESCE($3, name),
			color = COALESCE($4, color),
			size = COALESCE($5, size),
			width = COALESCE($6, width),
			drop_length = COALESCE($7, drop_length),
			height = COALESCE($8, height),
			length = COALESCE($9, length),
			depth = COALESCE($10, depth),
			diameter = COALESCE($11, diameter),
			dimension_unit = COALESCE($12, dimension_unit),
			weight = COALESCE($13, weight),
			made_to_measure = COALESCE($14, made_to_measure),
			updated_at = now()
		WHERE id = $1
		RETURNING `+variantColumns,
		id, patch.SKU, patch.Name, patch.Color, patch.Size, patch.Width, patch.Drop, patch.Height,
		patch.Length, patch.Depth, patch.Diameter, patch.DimensionUnit, patch.Weight, patch.MadeToMeasure,
	)
	return scanVariant(row, "update variant", deref(patch.SKU))
}

func (c *PostgresCatalog) FindBarcode(ctx context.Context, code string) (*Barcode, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+barcodeColumns+` FROM barcodes WHERE code = $1`, code)
	return scanBarcode(row, "find barcode")
}

func (c *PostgresCatalog) FindBarcodeByVariant(ctx context.Context, variantID string) (*Barcode, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT `+barcodeColumns+` FROM barcodes
		WHERE variant_id = $1
		ORDER BY code
		LIMIT 1
	`, variantID)
	return scanBarcode(row, "find barcode by variant")
}

// AssignBarcode inserts the code for the variant or claims it from the pool.
// The conditional upsert returns no row when another variant holds the code.
func (c *PostgresCatalog) AssignBarcode(ctx context.Context, variantID, code, barcodeType string) (*Barcode, error) {
	row := c.pool.QueryRow(ctx, `
		INSERT INTO barcodes (id, code, type, variant_id, assigned_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (code) DO UPDATE SET
			variant_id = EXCLUDED.variant_id,
			assigned_at = COALESCE(barcodes.assigned_at, now())
		WHERE barcodes.variant_id IS NULL OR barcodes.variant_id = EXCLUDED.variant_id
		RETURNING `+barcodeColumns,
		uuid.NewString(), code, barcodeType, variantID,
	)
	b, err := scanBarcode(row, "assign barcode", code)
	if errors.Is(err, ErrNotFound) {
		return nil, NewConstraintViolation(BarcodesCodeKey, "barcodes", code)
	}
	return b, err
}

func (c *PostgresCatalog) ReassignBarcode(ctx context.Context, code, variantID string) (*Barcode, error) {
	row := c.pool.QueryRow(ctx, `
		UPDATE barcodes SET variant_id = $2, assigned_at = now()
		WHERE code = $1
		RETURNING `+barcodeColumns,
		code, variantID,
	)
	return scanBarcode(row, "reassign barcode", code)
}

func (c *PostgresCatalog) AssignBarcodeFromPool(ctx context.Context, variantID, barcodeType string) (*Barcode, error) {
	row := c.pool.QueryRow(ctx, `
		UPDATE barcodes SET variant_id = $1, assigned_at = now()
		WHERE id = (
			SELECT id FROM barcodes
			WHERE variant_id IS NULL AND ($2 = '' OR type = $2)
			ORDER BY code
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+barcodeColumns,
		variantID, barcodeType,
	)
	b, err := scanBarcode(row, "assign barcode from pool")
	if errors.Is(err, ErrNotFound) {
		return nil, ErrPoolExhausted
	}
	return b, err
}

func (c *PostgresCatalog) SetChannelPrice(ctx context.Context, variantID, channel string, price float64) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO channel_prices (variant_id, channel, price, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (variant_id, channel) DO UPDATE SET price = EXCLUDED.price, updated_at = now()
	`, variantID, channel, price)
	return classify(err, "set channel price", channel)
}

func scanProduct(row pgx.Row, op string, value ...string) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Brand, &p.Category, &p.MadeToMeasure, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, scanError(err, op, value)
	}
	return &p, nil
}

func scanVariant(row pgx.Row, op string, value ...string) (*Variant, error) {
	var v Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Color, &v.Size, &v.Width, &v.Drop, &v.Height, &v.Length,
		&v.Depth, &v.Diameter, &v.DimensionUnit, &v.Weight, &v.MadeToMeasure, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, scanError(err, op, value)
	}
	return &v, nil
}

func scanBarcode(row pgx.Row, op string, value ...string) (*Barcode, error) {
	var b Barcode
	if err := row.Scan(&b.ID, &b.Code, &b.Type, &b.VariantID, &b.AssignedAt); err != nil {
		return nil, scanError(err, op, value)
	}
	return &b, nil
}

func scanError(err error, op string, value []string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var v string
	if len(value) > 0 {
		v = value[0]
	}
	return classify(err, op, v)
}
