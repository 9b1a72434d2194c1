package polymodels

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/Nigel2392/go-django/src/core/attrs"
	"github.com/Nigel2392/go-django/src/core/contenttypes"
	"github.com/Nigel2392/go-signals"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/pkg/errors"
)

var (
	registryMu sync.RWMutex

	// Every model registered with attrs.RegisterModel, in registration
	// order, keyed by its full content type name.
	registeredModels = orderedmap.NewOrderedMap[string, attrs.Definer]()

	// Short type name and bare model name aliases pointing into
	// registeredModels. Bare names are overwritten on collision; use the
	// short type name ("app.Model") to disambiguate.
	modelAliases = make(map[string]string)
)

var _, _ = attrs.OnModelRegister.Listen(func(s signals.Signal[attrs.SignalModelMeta], meta attrs.SignalModelMeta) error {
	var cType = contenttypes.NewContentType[attrs.Definer](meta.Definer)

	registryMu.Lock()
	registeredModels.Set(cType.TypeName(), meta.Definer)
	modelAliases[cType.ShortTypeName()] = cType.TypeName()
	modelAliases[cType.Model()] = cType.TypeName()
	registryMu.Unlock()

	runPendingOperations(cType, meta.Definer)
	return nil
})

func lookupRegistered(name string) (attrs.Definer, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if model, ok := registeredModels.Get(name); ok {
		return model, true
	}
	if full, ok := modelAliases[name]; ok {
		if model, ok := registeredModels.Get(full); ok {
			return model, true
		}
	}
	return nil, false
}

// Subtypes returns the base model itself plus every registered model whose
// struct type embeds the base's struct type, in registration order. The base
// is included even when it was never registered itself, mirroring how an
// abstract-ish root still constrains its hierarchy.
func Subtypes(base attrs.Definer) []attrs.Definer {
	var baseTyp = indirectType(reflect.TypeOf(base))
	var result = make([]attrs.Definer, 0, 8)
	var seenBase bool

	registryMu.RLock()
	for head := registeredModels.Front(); head != nil; head = head.Next() {
		var typ = indirectType(reflect.TypeOf(head.Value))
		if typ == baseTyp {
			seenBase = true
		}
		if typ == baseTyp || embedsType(typ, baseTyp) {
			result = append(result, head.Value)
		}
	}
	registryMu.RUnlock()

	if !seenBase {
		result = append([]attrs.Definer{base}, result...)
	}
	return result
}

// SubclassesLookup returns the filter mapping that restricts a ContentType
// queryset to rows identifying the base model or one of its subtypes:
//
//	{"<keyField>__in": [content type pks...]}
func SubclassesLookup(base Polymorphic, keyField string) (map[string]any, error) {
	if keyField == "" {
		keyField = "ID"
	}

	// Subtypes always includes the base itself, so the lookup is never empty.
	var subtypes = Subtypes(base)
	var pks = make([]any, 0, len(subtypes))
	for _, subtype := range subtypes {
		var ct, err = ContentTypeForModel(subtype, "")
		if err != nil {
			return nil, errors.Wrapf(err, "no content type row for %T", subtype)
		}
		field, ok := ct.FieldDefs().Field(keyField)
		if !ok {
			return nil, errors.Errorf("content type has no field %q", keyField)
		}
		pks = append(pks, field.GetValue())
	}

	return map[string]any{fmt.Sprintf("%s__in", keyField): pks}, nil
}

func indirectType(typ reflect.Type) reflect.Type {
	if typ.Kind() == reflect.Ptr {
		return typ.Elem()
	}
	return typ
}

func embedsType(typ, base reflect.Type) bool {
	if typ.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < typ.NumField(); i++ {
		var field = typ.Field(i)
		if !field.Anonymous {
			continue
		}
		var fieldTyp = indirectType(field.Type)
		if fieldTyp == base || embedsType(fieldTyp, base) {
			return true
		}
	}
	return false
}
