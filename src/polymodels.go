// Package polymodels implements polymorphic content type foreign keys for
// go-django models.
//
// A regular foreign key points at one fixed model. A PolymorphicTypeField
// instead points, through the content type registry, at "any subtype of a
// given base model": the field stores a reference to a ContentType row, and
// the set of valid rows is computed dynamically from the subtypes registered
// for the declared base. The base model may not even be registered yet when
// the field is declared; string references are resolved once the named
// model is registered with attrs.RegisterModel.
package polymodels

import "fmt"

// Validation message templates. The first applies while the target type is
// only known by name, the second once it has been resolved to a model.
const (
	errInvalidUnresolvedFmt = "Specified model is not a subclass of %s."
	errInvalidResolvedFmt   = "Specified content type is not of a subclass of %s."
)

// asValues normalizes a filter value for use as variadic lookup arguments:
// slices are expanded, scalars are wrapped.
func asValues(v any) []any {
	switch vals := v.(type) {
	case []any:
		return vals
	case []int64:
		var out = make([]any, len(vals))
		for i, val := range vals {
			out[i] = val
		}
		return out
	}
	return []any{v}
}

func displayName(polymorphicType any) string {
	switch t := polymorphicType.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%T", t)
	}
}
