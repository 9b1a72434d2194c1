package polymodels

import (
	"sync"

	"github.com/Nigel2392/go-django-polymodels/src/poly_errors"
	"github.com/Nigel2392/go-django-queries/src/expr"
	"github.com/Nigel2392/go-django/src/core/attrs"
	"github.com/pkg/errors"
)

// typedRelation forces the relation type reported to the host ORM.
type typedRelation struct {
	attrs.Relation
	typ attrs.RelationType
}

func (r *typedRelation) Type() attrs.RelationType {
	return r.typ
}

// PolymorphicManyToOneRel is a many-to-one relation to ContentType whose set
// of valid target rows is derived from the polymorphic type's subtype
// registry instead of being fixed.
//
// The effective filter returned by LimitChoicesTo is cached after the first
// computation and evicted whenever SetLimitChoicesTo reassigns the override.
type PolymorphicManyToOneRel struct {
	attrs.Relation

	mu sync.Mutex

	// polymorphicType is either an unresolved type name (string) or the
	// resolved Polymorphic model. It transitions exactly once, driven by
	// the lazy registration callback.
	polymorphicType any

	// keyField is the ContentType field the subclass constraint is keyed
	// by, "ID" unless configured otherwise.
	keyField string

	limitChoicesTo any
	cached         any
	hasCached      bool
}

func NewPolymorphicManyToOneRel(polymorphicType any, keyField string) *PolymorphicManyToOneRel {
	if keyField == "" {
		keyField = "ID"
	}
	return &PolymorphicManyToOneRel{
		Relation: &typedRelation{
			Relation: attrs.Relate(&ContentType{}, "", nil),
			typ:      attrs.RelManyToOne,
		},
		polymorphicType: polymorphicType,
		keyField:        keyField,
	}
}

// PolymorphicType returns the resolved target type, or false while the
// relation still holds an unresolved type name.
func (r *PolymorphicManyToOneRel) PolymorphicType() (Polymorphic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t, ok = r.polymorphicType.(Polymorphic)
	return t, ok
}

// UnresolvedTypeName returns the awaited type name, or false once resolved.
func (r *PolymorphicManyToOneRel) UnresolvedTypeName() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s, ok = r.polymorphicType.(string)
	return s, ok
}

func (r *PolymorphicManyToOneRel) setPolymorphicType(t Polymorphic) {
	r.mu.Lock()
	r.polymorphicType = t
	r.cached = nil
	r.hasCached = false
	r.mu.Unlock()
}

// LimitChoicesTo returns the effective filter constraining which ContentType
// rows are valid targets. The override set via SetLimitChoicesTo is merged
// with, never replaced by, the subclass constraint:
//
//   - no override: the subclass lookup mapping alone
//   - map[string]any: shallow merge, subclass constraint keys win
//   - expr.Expression: AND of the override and the subclass constraint
func (r *PolymorphicManyToOneRel) LimitChoicesTo() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasCached {
		return r.cached, nil
	}

	var base, ok = r.polymorphicType.(Polymorphic)
	if !ok {
		return nil, errors.Wrapf(
			poly_errors.ErrTypeNotResolved, "%v", r.polymorphicType,
		)
	}

	var lookup, err = SubclassesLookup(base, r.keyField)
	if err != nil {
		return nil, err
	}

	var limitChoicesTo any
	switch override := r.limitChoicesTo.(type) {
	case nil:
		limitChoicesTo = lookup
	case map[string]any:
		var merged = make(map[string]any, len(override)+len(lookup))
		for k, v := range override {
			merged[k] = v
		}
		for k, v := range lookup {
			merged[k] = v
		}
		limitChoicesTo = merged
	case expr.Expression:
		var constraints = make([]expr.Expression, 0, len(lookup)+1)
		constraints = append(constraints, override)
		for k, v := range lookup {
			constraints = append(constraints, expr.Q(k, asValues(v)...))
		}
		limitChoicesTo = expr.And(constraints...)
	default:
		return nil, errors.Errorf(
			"unsupported limit_choices_to override type %T", override,
		)
	}

	r.cached = limitChoicesTo
	r.hasCached = true
	return limitChoicesTo, nil
}

// SetLimitChoicesTo replaces the override filter and evicts the cached
// effective filter so the next LimitChoicesTo recomputes. It returns the
// previously cached value, if any. Callers must not rely on the returned
// value beyond debugging or introspection.
func (r *PolymorphicManyToOneRel) SetLimitChoicesTo(value any) any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prev any
	if r.hasCached {
		prev = r.cached
	}
	r.cached = nil
	r.hasCached = false
	r.limitChoicesTo = value
	return prev
}
