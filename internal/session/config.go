package session

import (
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/conflicts"
)

// ImportMode controls how rows resolve against existing catalog records
type ImportMode string

const (
	ModeCreateOnly     ImportMode = "create_only"
	ModeUpdateExisting ImportMode = "update_existing"
	ModeCreateOrUpdate ImportMode = "create_or_update"
)

var ErrInvalidConfig = errors.New("invalid import configuration")

// Features toggles the optional parts of the row pipeline
type Features struct {
	SmartAttributeExtraction bool `json:"smart_attribute_extraction"`
	MadeToMeasureDetection   bool `json:"made_to_measure_detection"`
	DigitsOnlyDimensions     bool `json:"digits_only_dimensions"`
	SKUGrouping              bool `json:"sku_grouping"`
	BarcodeAutoAssign        bool `json:"barcode_auto_assign"`
	AutoCreateParents        bool `json:"auto_create_parents"`
}

// FieldRule is one custom validation rule
type FieldRule struct {
	Field     string `json:"field"`
	Required  bool   `json:"required,omitempty"`
	Type      string `json:"type,omitempty" jsonschema:"enum=string,enum=number,enum=boolean,enum=barcode"`
	MaxLength int    `json:"max_length,omitempty"`
}

// Rule value types
const (
	RuleTypeString  = "string"
	RuleTypeNumber  = "number"
	RuleTypeBoolean = "boolean"
	RuleTypeBarcode = "barcode"
)

// ImportConfig is the per-session configuration, fixed once the dry run starts
type ImportConfig struct {
	Mode        ImportMode       `json:"mode" jsonschema:"enum=create_only,enum=update_existing,enum=create_or_update"`
	ChunkSize   int              `json:"chunk_size"`
	Features    Features         `json:"features"`
	Conflicts   conflicts.Config `json:"conflicts"`
	Rules       []FieldRule      `json:"rules,omitempty"`
	BarcodeType string           `json:"barcode_type,omitempty"`
}

// DefaultImportConfig returns the configuration used when a request omits one
func DefaultImportConfig(chunkSize int) ImportConfig {
	return ImportConfig{
		Mode:      ModeCreateOrUpdate,
		ChunkSize: chunkSize,
		Features: Features{
			SmartAttributeExtraction: true,
			MadeToMeasureDetection:   true,
		},
		Conflicts:   conflicts.DefaultConfig(),
		BarcodeType: catalog.BarcodeTypeEAN13,
	}
}

// WithDefaults fills zero values from DefaultImportConfig
func (c ImportConfig) WithDefaults(chunkSize int) ImportConfig {
	if c.Mode == "" {
		c.Mode = ModeCreateOrUpdate
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = chunkSize
	}
	if c.BarcodeType == "" {
		c.BarcodeType = catalog.BarcodeTypeEAN13
	}
	c.Conflicts = c.Conflicts.WithDefaults()
	return c
}

// Validate checks the mode, chunk size bounds, strategies and rules
func (c ImportConfig) Validate(minChunk, maxChunk int) error {
	switch c.Mode {
	case ModeCreateOnly, ModeUpdateExisting, ModeCreateOrUpdate:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.ChunkSize < minChunk || c.ChunkSize > maxChunk {
		return fmt.Errorf("%w: chunk_size %d outside [%d, %d]", ErrInvalidConfig, c.ChunkSize, minChunk, maxChunk)
	}
	if err := c.Conflicts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, r := range c.Rules {
		if r.Field == "" {
			return fmt.Errorf("%w: rule without field", ErrInvalidConfig)
		}
		switch r.Type {
		case "", RuleTypeString, RuleTypeNumber, RuleTypeBoolean, RuleTypeBarcode:
		default:
			return fmt.Errorf("%w: rule %s has unknown type %q", ErrInvalidConfig, r.Field, r.Type)
		}
	}
	return nil
}
