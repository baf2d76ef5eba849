package actions

import (
	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/conflicts"
)

// Payload keys of a write Failure
const (
	PayloadEntity = "entity"
	PayloadField  = "field"
)

// writeFailure wraps a catalog write error, tagging which entity and row
// field the write was for so a uniqueness violation can become a Conflict
func writeFailure(message, entity, field string, err error) Failure {
	return Failure{
		Message: message,
		Err:     err,
		Payload: map[string]any{PayloadEntity: entity, PayloadField: field},
	}
}

// ConflictFrom turns a row that failed on a uniqueness violation into a
// Conflict for the resolver. ok is false for any other failure.
func ConflictFrom(res *RowResult, ac *ActionContext) (conflicts.Conflict, bool) {
	if res == nil || res.Failure == nil {
		return conflicts.Conflict{}, false
	}
	v, ok := catalog.AsViolation(res.Failure.Err)
	if !ok {
		return conflicts.Conflict{}, false
	}

	entity, _ := res.Failure.Payload[PayloadEntity].(string)
	field, _ := res.Failure.Payload[PayloadField].(string)
	if field == "" {
		field = v.Field
	}
	value := v.Value
	if value == "" && field != "" {
		value = ac.String(field)
	}

	return conflicts.Conflict{
		Kind:      conflicts.KindOf(v),
		Violation: v,
		Entity:    entity,
		Field:     field,
		Value:     value,
		Row:       ac.RowNumber,
		Fields:    ac.Fields,
		ProductID: ac.MetaString(MetaProductID),
		VariantID: ac.MetaString(MetaVariantID),
	}, true
}
