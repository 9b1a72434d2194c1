package polymodels

import (
	"github.com/Nigel2392/go-django-queries/src/models"
	"github.com/Nigel2392/go-django/src/core/attrs"
)

// Polymorphic is the capability a model must provide to be used as the
// target type of a PolymorphicTypeField. It is satisfied by embedding
// PolymorphicModel; the unexported method keeps arbitrary definers from
// accidentally qualifying.
type Polymorphic interface {
	attrs.Definer
	polymorphicModel()
}

// PolymorphicModel marks a model as the root (or member) of a polymorphic
// hierarchy. Embed it instead of models.Model:
//
//	type Animal struct {
//		polymodels.PolymorphicModel
//		ID   int64
//		Name string
//	}
//
// A model counts as a subtype of Animal when its struct type embeds Animal,
// directly or through intermediate embeds. Subtype enumeration only sees
// models that have been registered with attrs.RegisterModel.
type PolymorphicModel struct {
	models.Model
}

func (PolymorphicModel) polymorphicModel() {}
