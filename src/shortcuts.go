package polymodels

import (
	"fmt"
	"reflect"

	"github.com/Nigel2392/go-django/src/core/attrs"
)

// FieldConfig configures a PolymorphicTypeField.
type FieldConfig struct {
	// ColumnName overrides the database column, "<name>_id" style defaults
	// apply when empty.
	ColumnName string

	// TargetField is the ContentType field the stored reference is keyed by,
	// "ID" when empty.
	TargetField string

	Null  bool
	Blank bool

	Label    string
	HelpText string

	// Default supplies the field default. When nil and Null is false, the
	// content type row of the resolved target type is used instead.
	Default func() any
}

type unboundField struct {
	name            string
	polymorphicType any
	conf            *FieldConfig
}

func (u *unboundField) Name() string {
	return u.name
}

func (u *unboundField) BindField(model attrs.Definer) (attrs.Field, error) {
	if u.name == "" {
		panic(fmt.Sprintf("field name cannot be empty for %T", model))
	}

	var (
		rVal = reflect.ValueOf(model)
		rTyp = reflect.TypeOf(model)
	)

	if rVal.Kind() != reflect.Ptr || rTyp.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a pointer to a struct, got %T", model)
	}

	var field = rVal.Elem().FieldByName(u.name)
	if !field.IsValid() {
		return nil, fmt.Errorf("field %s not found in model %s", u.name, rTyp.Elem().Name())
	}

	return NewPolymorphicTypeField(
		model, field.Addr().Interface(), u.name, u.polymorphicType, u.conf,
	), nil
}

// ContentTypeField declares a PolymorphicTypeField in a model's FieldDefs:
//
//	func (m *Trait) FieldDefs() attrs.Definitions {
//		return m.Model.Define(m,
//			attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
//			polymodels.ContentTypeField("Owner", &Animal{}),
//		)
//	}
//
// The struct field named by name must be a *ContentType. polymorphicType is
// the base model value, the literal "self", or the (possibly not yet
// registered) target model's type name.
func ContentTypeField(name string, polymorphicType any, conf ...*FieldConfig) attrs.UnboundFieldConstructor {
	var cnf *FieldConfig
	if len(conf) > 0 {
		cnf = conf[0]
	}
	return &unboundField{
		name:            name,
		polymorphicType: polymorphicType,
		conf:            cnf,
	}
}
