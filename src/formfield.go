package polymodels

import (
	"fmt"
	"strconv"

	"github.com/Nigel2392/go-django-polymodels/src/poly_errors"
	"github.com/Nigel2392/go-django/src/core/logger"
	formfields "github.com/Nigel2392/go-django/src/forms/fields"
	"github.com/Nigel2392/go-django/src/forms/widgets"
	"github.com/Nigel2392/go-django/src/forms/widgets/options"
	"github.com/pkg/errors"
)

// ContentTypeChoiceField is a form field whose choices are the content type
// rows a PolymorphicTypeField accepts. The choice queryset is lazy: it is
// not materialized when the form is described, only when choices are
// rendered or a submitted value is cleaned.
type ContentTypeChoiceField struct {
	formfields.Field

	QuerySet    *LazyContentTypeQuerySet
	ToFieldName string

	// InvalidMessage is returned verbatim when a submitted value does not
	// identify one of the valid content types.
	InvalidMessage string
}

func NewContentTypeChoiceField(qs *LazyContentTypeQuerySet, toFieldName, invalidMessage string, opts ...func(formfields.Field)) *ContentTypeChoiceField {
	if toFieldName == "" {
		toFieldName = "ID"
	}
	return &ContentTypeChoiceField{
		Field:          formfields.CharField(opts...),
		QuerySet:       qs,
		ToFieldName:    toFieldName,
		InvalidMessage: invalidMessage,
	}
}

func (f *ContentTypeChoiceField) Widget() widgets.Widget {
	return options.NewSelectInput(nil, f.Options)
}

// Options returns one select option per valid content type row. Query
// failures yield an empty option list instead of breaking form rendering.
func (f *ContentTypeChoiceField) Options() []widgets.Option {
	var rows, err = f.QuerySet.All()
	if err != nil {
		logger.Errorf("polymodels: failed to load content type choices: %v", err)
		return nil
	}

	var options = make([]widgets.Option, 0, len(rows))
	for _, ct := range rows {
		options = append(options, widgets.NewOption(
			ct.ShortTypeName(),
			ct.Label(),
			f.keyValue(ct),
		))
	}
	return options
}

// keyValue renders a row's key field as its form value.
func (f *ContentTypeChoiceField) keyValue(ct *ContentType) string {
	var field, ok = ct.FieldDefs().Field(f.ToFieldName)
	if !ok {
		return strconv.FormatInt(ct.ID, 10)
	}
	switch v := field.GetValue().(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// keyFromString coerces a submitted form value to the key field's type, so
// string-keyed fields pass the raw value through while integer-keyed fields
// reject non-numeric input before querying.
func (f *ContentTypeChoiceField) keyFromString(v string) (any, error) {
	var field, ok = (&ContentType{}).FieldDefs().Field(f.ToFieldName)
	if ok {
		if _, isInt := field.GetValue().(int64); isInt {
			var id, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, errors.Wrap(poly_errors.ErrInvalidContentType, f.InvalidMessage)
			}
			return id, nil
		}
	}
	return v, nil
}

// ValueToGo converts a submitted form value into a *ContentType, validating
// it against the lazy choice queryset.
func (f *ContentTypeChoiceField) ValueToGo(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *ContentType:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var key, err = f.keyFromString(v)
		if err != nil {
			return nil, err
		}
		return f.lookup(key)
	case int64:
		return f.lookup(v)
	case int:
		return f.lookup(int64(v))
	}
	return nil, errors.Wrap(poly_errors.ErrInvalidContentType, f.InvalidMessage)
}

func (f *ContentTypeChoiceField) lookup(value any) (*ContentType, error) {
	var ct, err = f.QuerySet.GetByKey(value)
	if err != nil {
		return nil, errors.Wrap(poly_errors.ErrInvalidContentType, f.InvalidMessage)
	}
	return ct, nil
}

// ValueToForm converts a field value to its form representation.
func (f *ContentTypeChoiceField) ValueToForm(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return ""
	case *ContentType:
		if v == nil {
			return ""
		}
		return f.keyValue(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return value
}
