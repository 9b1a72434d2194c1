package polymodels

import (
	"fmt"

	"github.com/Nigel2392/go-django-polymodels/src/poly_errors"
	queryfields "github.com/Nigel2392/go-django-queries/src/fields"
	"github.com/Nigel2392/go-django/src/core/attrs"
	"github.com/Nigel2392/go-django/src/core/contenttypes"
	"github.com/Nigel2392/go-django/src/core/logger"
	formfields "github.com/Nigel2392/go-django/src/forms/fields"
	"github.com/pkg/errors"
)

var (
	_ attrs.Field          = (*PolymorphicTypeField)(nil)
	_ attrs.CanRelatedName = (*PolymorphicTypeField)(nil)
)

// PolymorphicTypeField is a foreign key to ContentType constrained, at query
// and form time, to rows identifying subtypes of a declared polymorphic base
// model. At the schema level it is indistinguishable from a plain foreign
// key to the content type registry: the polymorphic constraint never appears
// in migration output.
type PolymorphicTypeField struct {
	*queryfields.ForeignKeyField[*ContentType]

	rel  *PolymorphicManyToOneRel
	conf *FieldConfig

	// typeName is the short display name of the resolved target type,
	// empty while unresolved.
	typeName       string
	invalidMessage string
	ctypeDefault   func() (*ContentType, error)
}

// NewPolymorphicTypeField constructs the field for forModel, storing its
// value at dst (a **ContentType). polymorphicType may be:
//
//   - a Polymorphic model value, validated immediately;
//   - the literal "self", resolving to forModel;
//   - the type name of a model that has not been registered yet, validated
//     and resolved once that model registers.
//
// Supplying a non-string value that is not Polymorphic is a programmer
// error and panics before any database interaction.
func NewPolymorphicTypeField(forModel attrs.Definer, dst any, name string, polymorphicType any, conf *FieldConfig) *PolymorphicTypeField {
	if conf == nil {
		conf = &FieldConfig{}
	}

	if _, isString := polymorphicType.(string); !isString {
		assertPolymorphicType(polymorphicType)
	}

	var rel = NewPolymorphicManyToOneRel(polymorphicType, conf.TargetField)
	var f = &PolymorphicTypeField{
		ForeignKeyField: queryfields.NewForeignKeyField[*ContentType](
			forModel, name, &queryfields.FieldConfig{
				ScanTo:      dst,
				ReverseName: name,
				ColumnName:  conf.ColumnName,
				Rel:         rel,
			},
		),
		rel:            rel,
		conf:           conf,
		invalidMessage: fmt.Sprintf(errInvalidUnresolvedFmt, displayName(polymorphicType)),
	}

	switch t := polymorphicType.(type) {
	case string:
		LazyModelOperation(forModel, t, func(declaring, related attrs.Definer) {
			assertPolymorphicType(related)
			var resolved = related.(Polymorphic)
			f.rel.setPolymorphicType(resolved)
			f.doPolymorphicType(resolved)
		})
	case Polymorphic:
		f.doPolymorphicType(t)
	}
	return f
}

func assertPolymorphicType(model any) {
	if _, ok := model.(Polymorphic); !ok {
		panic(errors.Wrapf(
			poly_errors.ErrNotPolymorphic,
			"%s (got %T)",
			fmt.Sprintf(errInvalidUnresolvedFmt, "polymodels.PolymorphicModel"),
			model,
		))
	}
}

// doPolymorphicType wires the behaviors that need the resolved target type:
// the content type default (unless the field allows null or carries an
// explicit default), the display name, and the target-specific validation
// message. Runs exactly once per field, either at construction or from the
// lazy registration callback.
func (f *PolymorphicTypeField) doPolymorphicType(polymorphicType Polymorphic) {
	var cType = contenttypes.NewContentType[attrs.Definer](polymorphicType)
	if f.conf.Default == nil && !f.conf.Null {
		f.ctypeDefault = func() (*ContentType, error) {
			return ContentTypeForModel(polymorphicType, "")
		}
	}
	f.typeName = cType.Model()
	f.invalidMessage = fmt.Sprintf(errInvalidResolvedFmt, f.typeName)
}

// Relation returns the dynamic choice-set relation backing this field.
func (f *PolymorphicTypeField) Relation() *PolymorphicManyToOneRel {
	return f.rel
}

// ResolvedTypeName returns the display name of the resolved target type,
// empty while the reference is unresolved.
func (f *PolymorphicTypeField) ResolvedTypeName() string {
	return f.typeName
}

// RelatedName suppresses the reverse accessor: content types do not grow a
// reverse relation for every model pointing at them.
func (f *PolymorphicTypeField) RelatedName() string {
	return ""
}

func (f *PolymorphicTypeField) AllowNull() bool {
	return f.conf.Null
}

func (f *PolymorphicTypeField) AllowBlank() bool {
	return f.conf.Blank
}

func (f *PolymorphicTypeField) AllowEdit() bool {
	return true
}

// HasContentTypeDefault reports whether the resolved-type default provider
// has been installed.
func (f *PolymorphicTypeField) HasContentTypeDefault() bool {
	return f.ctypeDefault != nil
}

func (f *PolymorphicTypeField) GetDefault() interface{} {
	if f.conf.Default != nil {
		return f.conf.Default()
	}
	if f.ctypeDefault != nil {
		var ct, err = f.ctypeDefault()
		if err != nil {
			logger.Errorf(
				"polymodels: failed to load default content type for %q: %v",
				f.Name(), err,
			)
			return nil
		}
		return ct
	}
	return nil
}

func (f *PolymorphicTypeField) Label() string {
	if f.conf.Label != "" {
		return f.conf.Label
	}
	return f.Name()
}

func (f *PolymorphicTypeField) HelpText() string {
	if f.conf.HelpText != "" {
		return f.conf.HelpText
	}
	if f.typeName != "" {
		return fmt.Sprintf("Content type of a subclass of %s", f.typeName)
	}
	return ""
}

// Validate checks that an assigned content type identifies a subtype of the
// field's polymorphic type. Unresolved fields skip target-dependent
// validation; a violation is reported as a recoverable field error, never a
// panic.
func (f *PolymorphicTypeField) Validate() error {
	var base, ok = f.rel.PolymorphicType()
	if !ok {
		return nil
	}

	var value = f.ForeignKeyField.GetValue()
	ct, ok := value.(*ContentType)
	if !ok || ct == nil {
		return nil
	}

	for _, subtype := range Subtypes(base) {
		var c = contenttypes.NewContentType[attrs.Definer](subtype)
		if c.AppLabel() == ct.AppLabel && c.Model() == ct.ModelName {
			return nil
		}
	}
	return errors.Wrap(poly_errors.ErrInvalidContentType, f.invalidMessage)
}

// FormField implements the form generation hook of attrs.Field, backed by
// the default database.
func (f *PolymorphicTypeField) FormField() formfields.Field {
	return f.FormFieldUsing("")
}

// FormFieldUsing returns a model choice form field whose choices are a
// LazyContentTypeQuerySet bound to the given database settings key. It
// panics with a configuration error while the target type reference is an
// unresolved name: forms cannot be built before the model graph is loaded.
func (f *PolymorphicTypeField) FormFieldUsing(db string) formfields.Field {
	if name, ok := f.rel.UnresolvedTypeName(); ok {
		panic(fmt.Errorf(
			"polymodels: cannot create form field for %q yet, related model %q has not been registered",
			f.Name(), name,
		))
	}

	return NewContentTypeChoiceField(
		NewLazyContentTypeQuerySet(f.rel, db),
		f.rel.keyField,
		f.invalidMessage,
		formfields.Label(f.Label()),
		formfields.HelpText(f.HelpText()),
		formfields.Required(!f.conf.Blank && !f.conf.Null),
	)
}
