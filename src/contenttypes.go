package polymodels

import (
	"fmt"
	"sync"

	"github.com/Nigel2392/go-django-polymodels/src/poly_errors"
	queries "github.com/Nigel2392/go-django-queries/src"
	"github.com/Nigel2392/go-django-queries/src/models"
	"github.com/Nigel2392/go-django/src/core/attrs"
	"github.com/Nigel2392/go-django/src/core/contenttypes"
	"github.com/Nigel2392/goldcrest"
	"github.com/pkg/errors"
)

// HOOK_CONTENT_TYPE_LABEL lets applications override how content type rows
// are displayed in form choices. The first hook returning ok wins.
const HOOK_CONTENT_TYPE_LABEL = "polymodels.content_type_label"

type ContentTypeLabelFunc = func(ct *ContentType) (label string, ok bool)

var (
	_ queries.QuerySetDatabaseDefiner = (*ContentType)(nil)
)

// ContentType is the registry row entity a PolymorphicTypeField stores a
// reference to: one row per registered model, keyed by (app label, model
// name). Rows are created on demand, see ContentTypeForModel.
type ContentType struct {
	models.Model
	ID        int64
	AppLabel  string
	ModelName string

	// db is the settings key of the database this instance is bound to.
	// Empty means the default database.
	db string
}

func (c *ContentType) FieldDefs() attrs.Definitions {
	return c.Model.Define(c,
		attrs.Unbound("ID", &attrs.FieldConfig{
			Primary: true,
		}),
		attrs.Unbound("AppLabel", &attrs.FieldConfig{
			Column: "app_label",
		}),
		attrs.Unbound("ModelName", &attrs.FieldConfig{
			Column: "model",
		}),
	).WithTableName("content_types")
}

// QuerySetDatabase implements queries.QuerySetDatabaseDefiner so querysets
// seeded from this instance run against the bound database.
func (c *ContentType) QuerySetDatabase() string {
	return c.db
}

// UsingDB returns a copy of the content type bound to the given database
// settings key.
func (c *ContentType) UsingDB(db string) *ContentType {
	return &ContentType{
		ID:        c.ID,
		AppLabel:  c.AppLabel,
		ModelName: c.ModelName,
		db:        db,
	}
}

// ShortTypeName returns the "app.Model" name this row identifies.
func (c *ContentType) ShortTypeName() string {
	return fmt.Sprintf("%s.%s", c.AppLabel, c.ModelName)
}

// ModelClass resolves the row back to the registered model. It fails with
// poly_errors.ErrStaleContentType when the row names a model that is no
// longer (or not yet) registered.
func (c *ContentType) ModelClass() (attrs.Definer, error) {
	if model, ok := lookupRegistered(c.ShortTypeName()); ok {
		return model, nil
	}
	if def := contenttypes.DefinitionForType(c.ShortTypeName()); def != nil {
		if model, ok := def.ContentObject.(attrs.Definer); ok {
			return model, nil
		}
	}
	return nil, errors.Wrapf(
		poly_errors.ErrStaleContentType, "%q", c.ShortTypeName(),
	)
}

// New returns a fresh instance of the model this row identifies.
func (c *ContentType) New() (attrs.Definer, error) {
	var model, err = c.ModelClass()
	if err != nil {
		return nil, err
	}
	return attrs.NewObject[attrs.Definer](model), nil
}

// Label returns the display label used for form choices.
func (c *ContentType) Label() string {
	var hooks = goldcrest.Get[ContentTypeLabelFunc](HOOK_CONTENT_TYPE_LABEL)
	for _, hook := range hooks {
		if label, ok := hook(c); ok {
			return label
		}
	}
	return c.ShortTypeName()
}

var (
	ctCacheMu sync.RWMutex
	ctCache   = make(map[string]*ContentType)
)

// ContentTypeForModel returns the content type row for the given model,
// creating it on first use. Rows are cached per process; the cache is shared
// across database aliases since (app label, model name) identifies the same
// logical row everywhere.
func ContentTypeForModel(model attrs.Definer, db string) (*ContentType, error) {
	var cType = contenttypes.NewContentType[attrs.Definer](model)
	var key = cType.ShortTypeName()

	ctCacheMu.RLock()
	var cached, ok = ctCache[key]
	ctCacheMu.RUnlock()
	if ok {
		if cached.db != db {
			return cached.UsingDB(db), nil
		}
		return cached, nil
	}

	var row, _, err = queries.GetQuerySet(&ContentType{db: db}).
		Filter("AppLabel", cType.AppLabel()).
		Filter("ModelName", cType.Model()).
		GetOrCreate(&ContentType{
			AppLabel:  cType.AppLabel(),
			ModelName: cType.Model(),
			db:        db,
		})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get or create content type for %q", key)
	}

	ctCacheMu.Lock()
	ctCache[key] = row
	ctCacheMu.Unlock()
	return row, nil
}
