package poly_errors

import "github.com/Nigel2392/go-django/src/core/errs"

const (
	ErrNotPolymorphic     errs.Error = "Model is not polymorphic"
	ErrTypeNotResolved    errs.Error = "Polymorphic type reference is not resolved"
	ErrStaleContentType   errs.Error = "Content type does not reference a registered model"
	ErrInvalidContentType errs.Error = "Specified content type is not valid for this field"
)
