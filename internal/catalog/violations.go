package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// ConstraintKind classifies a uniqueness violation
type ConstraintKind string

const (
	ConstraintSKU               ConstraintKind = "duplicate_sku"
	ConstraintBarcode           ConstraintKind = "duplicate_barcode"
	ConstraintVariantAttributes ConstraintKind = "variant_attributes"
	ConstraintUniqueField       ConstraintKind = "unique_field"
)

// Constraint names declared in the schema
const (
	ProductsSKUKey              = "products_sku_key"
	VariantsSKUKey              = "variants_sku_key"
	BarcodesCodeKey             = "barcodes_code_key"
	VariantsProductColorSizeKey = "variants_product_color_size_key"
)

var constraintKinds = map[string]ConstraintKind{
	ProductsSKUKey:              ConstraintSKU,
	VariantsSKUKey:              ConstraintSKU,
	BarcodesCodeKey:             ConstraintBarcode,
	VariantsProductColorSizeKey: ConstraintVariantAttributes,
}

// ConstraintViolation is returned by writes that collide with a unique constraint
type ConstraintViolation struct {
	Kind       ConstraintKind
	Constraint string
	Table      string
	// Field is the violated column for generic unique-field violations
	Field string
	Value string
	Err   error
}

func (e *ConstraintViolation) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("unique constraint %s violated on %s (value %q)", e.Constraint, e.Table, e.Value)
	}
	return fmt.Sprintf("unique constraint %s violated on %s", e.Constraint, e.Table)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}

// NewConstraintViolation builds a violation for the named constraint
func NewConstraintViolation(constraint, table, value string) *ConstraintViolation {
	v := &ConstraintViolation{
		Kind:       KindForConstraint(constraint),
		Constraint: constraint,
		Table:      table,
		Value:      value,
	}
	if v.Kind == ConstraintUniqueField {
		v.Field = fieldFromConstraint(constraint, table)
	}
	return v
}

// KindForConstraint maps a constraint name to its kind; unknown names are generic unique fields
func KindForConstraint(constraint string) ConstraintKind {
	if kind, ok := constraintKinds[constraint]; ok {
		return kind
	}
	return ConstraintUniqueField
}

// AsViolation extracts a *ConstraintViolation from err
func AsViolation(err error) (*ConstraintViolation, bool) {
	var v *ConstraintViolation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// classify converts a driver error into a ConstraintViolation, ErrNotFound or
// an ErrStore-wrapped error. value is the offending input, if known.
func classify(err error, op, value string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		v := NewConstraintViolation(pgErr.ConstraintName, pgErr.TableName, value)
		if v.Field == "" && pgErr.ColumnName != "" && v.Kind == ConstraintUniqueField {
			v.Field = pgErr.ColumnName
		}
		v.Err = err
		return v
	}
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
		return fmt.Errorf("%w: failed to %s: %w", ErrNotFound, op, err)
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrStore, op, err)
}

// fieldFromConstraint recovers the column from the "<table>_<column>_key" naming convention
func fieldFromConstraint(constraint, table string) string {
	name := strings.TrimSuffix(constraint, "_key")
	name = strings.TrimSuffix(name, "_idx")
	if table != "" {
		name = strings.TrimPrefix(name, table+"_")
	}
	return name
}
