package actions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

const (
	maxNameLength = 255
	maxSKULength  = 100
)

// numericFields must parse as non-negative numbers when present
var numericFields = []string{
	types.FieldWidth,
	types.FieldDrop,
	types.FieldHeight,
	types.FieldLength,
	types.FieldDepth,
	types.FieldDiameter,
	types.FieldWeight,
	types.FieldRetailPrice,
	types.FieldTradePrice,
	types.FieldCostPrice,
	types.FieldSalePrice,
}

// variantOnlyFields need a variant_sku to land anywhere
var variantOnlyFields = []string{
	types.FieldVariantName,
	types.FieldVariantColor,
	types.FieldVariantSize,
	types.FieldBarcode,
}

// ValidateRow checks required and typed fields and coerces valid values to
// their typed form
type ValidateRow struct{}

func NewValidateRow() *ValidateRow { return &ValidateRow{} }

func (a *ValidateRow) Name() string   { return "validate_row" }
func (a *ValidateRow) Required() bool { return true }

func (a *ValidateRow) Execute(_ context.Context, ac *ActionContext) ActionResult {
	var (
		errs      []FieldError
		mutations []Mutation
	)

	for _, rule := range a.rules(ac) {
		m, err := checkRule(ac, rule)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		if m != nil {
			mutations = append(mutations, *m)
		}
	}

	for field := range ac.Fields {
		if !strings.HasPrefix(field, types.PriceFieldPrefix) || !ac.Has(field) {
			continue
		}
		m, err := checkRule(ac, session.FieldRule{Field: field, Type: session.RuleTypeNumber})
		if err != nil {
			errs = append(errs, *err)
		} else if m != nil {
			mutations = append(mutations, *m)
		}
	}

	if !ac.Has(types.FieldVariantSKU) {
		for _, field := range variantOnlyFields {
			if ac.Has(field) {
				errs = append(errs, FieldError{
					Field:   types.FieldVariantSKU,
					Message: fmt.Sprintf("required when %s is set", field),
				})
				break
			}
		}
	}

	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.String()
		}
		return Failure{
			Message: fmt.Sprintf("row %d failed validation", ac.RowNumber),
			Payload: map[string]any{"field_errors": errs},
			Errors:  messages,
		}
	}
	return succeed("valid", mutations...)
}

// rules returns the custom rule set, or the default one when none is configured
func (a *ValidateRow) rules(ac *ActionContext) []session.FieldRule {
	if len(ac.Config.Rules) > 0 {
		return ac.Config.Rules
	}

	nameRequired := true
	f := ac.Config.Features
	if f.AutoCreateParents && f.SKUGrouping && ac.Has(types.FieldVariantSKU) {
		nameRequired = false
	}

	rules := []session.FieldRule{
		{Field: types.FieldProductName, Required: nameRequired, Type: session.RuleTypeString, MaxLength: maxNameLength},
		{Field: types.FieldProductSKU, Type: session.RuleTypeString, MaxLength: maxSKULength},
		{Field: types.FieldVariantSKU, Type: session.RuleTypeString, MaxLength: maxSKULength},
		{Field: types.FieldVariantName, Type: session.RuleTypeString, MaxLength: maxNameLength},
		{Field: types.FieldMadeToMeasure, Type: session.RuleTypeBoolean},
		{Field: types.FieldBarcode, Type: session.RuleTypeBarcode},
	}
	for _, field := range numericFields {
		rules = append(rules, session.FieldRule{Field: field, Type: session.RuleTypeNumber})
	}
	return rules
}

func checkRule(ac *ActionContext, rule session.FieldRule) (*Mutation, *FieldError) {
	if !ac.Has(rule.Field) {
		if rule.Required {
			return nil, &FieldError{Field: rule.Field, Message: "is required"}
		}
		return nil, nil
	}

	raw := ac.String(rule.Field)
	invalid := func(msg string) *FieldError {
		return &FieldError{Field: rule.Field, Value: raw, Message: msg}
	}

	if rule.MaxLength > 0 && utf8.RuneCountInString(raw) > rule.MaxLength {
		return nil, invalid(fmt.Sprintf("exceeds %d characters", rule.MaxLength))
	}

	switch rule.Type {
	case session.RuleTypeNumber:
		f := catalog.FloatField(ac.Fields, rule.Field)
		if f == nil {
			return nil, invalid("must be a number")
		}
		if *f < 0 {
			return nil, invalid("must not be negative")
		}
		return &Mutation{Field: rule.Field, Value: *f}, nil
	case session.RuleTypeBoolean:
		b := catalog.BoolField(ac.Fields, rule.Field)
		if b == nil {
			return nil, invalid("must be yes/no or true/false")
		}
		return &Mutation{Field: rule.Field, Value: *b}, nil
	case session.RuleTypeBarcode:
		code, err := catalog.CheckBarcode(raw)
		if err != nil {
			return nil, invalid(err.Error())
		}
		if code == "" {
			return nil, invalid("must contain digits")
		}
		return &Mutation{Field: rule.Field, Value: code}, nil
	}
	return nil, nil
}

// RequiredFields names the fields the row's rule set requires
func RequiredFields(ac *ActionContext) []string {
	var out []string
	for _, rule := range (&ValidateRow{}).rules(ac) {
		if rule.Required {
			out = append(out, rule.Field)
		}
	}
	return out
}
