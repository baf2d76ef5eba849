// Package actions implements the per-row pipeline: validate, extract
// attributes, resolve product and variant, assign barcode, set pricing.
package actions

import (
	"fmt"
	"strings"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/session"
)

// Metadata keys actions use to signal each other and the calling stage
const (
	MetaProductID       = "product_id"
	MetaVariantID       = "variant_id"
	MetaWasCreated      = "was_created"
	MetaProductOutcome  = "product_outcome"
	MetaVariantOutcome  = "variant_outcome"
	MetaBarcodeOutcome  = "barcode_outcome"
	MetaPricesSet       = "prices_set"
	MetaParentCreated   = "parent_auto_created"
	MetaExtraction      = "extraction_confidence"
	MetaExistingSKU     = "existing_sku"
	MetaBarcodeConflict = "barcode_conflict"
	MetaVariantConflict = "variant_attribute_conflict"
	MetaExtractedCount  = "extracted_attributes"
	metaWarnings        = "warnings"
)

// Write outcomes recorded under the *_outcome keys
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeAssigned  = "assigned"
)

// Derived fields written by attribute extraction
const (
	FieldMTMConfidence = "mtm_confidence"
	ExtractedPrefix    = "extracted_"
)

// ActionContext is the state of one row travelling through the pipeline. It
// is owned by a single pipeline run and never shared between rows.
type ActionContext struct {
	RowNumber int
	Fields    map[string]any
	// Config is a copy of the session configuration; actions must not modify it
	Config   session.ImportConfig
	DryRun   bool
	Metadata map[string]any
}

// NewActionContext creates the context for one row
func NewActionContext(row int, fields map[string]any, cfg session.ImportConfig, dryRun bool) *ActionContext {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &ActionContext{
		RowNumber: row,
		Fields:    fields,
		Config:    cfg,
		DryRun:    dryRun,
		Metadata:  make(map[string]any),
	}
}

// String returns a trimmed text field or ""
func (c *ActionContext) String(field string) string {
	if s := catalog.StringField(c.Fields, field); s != nil {
		return *s
	}
	return ""
}

// Has reports whether a field carries a non-blank value
func (c *ActionContext) Has(field string) bool {
	v, ok := c.Fields[field]
	return ok && !catalog.IsBlank(v)
}

// Apply writes mutations into the fields; a nil value removes the field
func (c *ActionContext) Apply(mutations []Mutation) {
	for _, m := range mutations {
		if m.Value == nil {
			delete(c.Fields, m.Field)
			continue
		}
		c.Fields[m.Field] = m.Value
	}
}

// Merge overlays values onto the fields; an empty string removes the field
func (c *ActionContext) Merge(values map[string]any) {
	for k, v := range values {
		if s, ok := v.(string); ok && s == "" {
			delete(c.Fields, k)
			continue
		}
		c.Fields[k] = v
	}
}

// Warn records a non-fatal note on the row
func (c *ActionContext) Warn(format string, args ...any) {
	warnings, _ := c.Metadata[metaWarnings].([]string)
	c.Metadata[metaWarnings] = append(warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the notes recorded with Warn
func (c *ActionContext) Warnings() []string {
	warnings, _ := c.Metadata[metaWarnings].([]string)
	return warnings
}

// MetaString reads a string metadata value
func (c *ActionContext) MetaString(key string) string {
	s, _ := c.Metadata[key].(string)
	return s
}

// WasCreated reports whether the row created its product
func (c *ActionContext) WasCreated() bool {
	b, _ := c.Metadata[MetaWasCreated].(bool)
	return b
}

// Clone copies the row so a retry starts from the original fields
func (c *ActionContext) Clone() *ActionContext {
	fields := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}
	return NewActionContext(c.RowNumber, fields, c.Config, c.DryRun)
}

// FieldsFromRow maps raw cell values onto canonical fields by column index
func FieldsFromRow(values []string, mapping map[int]string) map[string]any {
	fields := make(map[string]any, len(mapping))
	for col, field := range mapping {
		if field == "" || col < 0 || col >= len(values) {
			continue
		}
		v := strings.TrimSpace(values[col])
		if v == "" {
			continue
		}
		fields[field] = v
	}
	return fields
}
