package polymodels

import (
	"sync"
	"sync/atomic"

	"github.com/Nigel2392/go-django-polymodels/src/poly_errors"
	queries "github.com/Nigel2392/go-django-queries/src"
	"github.com/Nigel2392/go-django-queries/src/expr"
	"github.com/Nigel2392/go-django/src/core/attrs"
	"github.com/Nigel2392/go-django/src/core/contenttypes"
	"github.com/Nigel2392/go-django/src/core/logger"
	"github.com/pkg/errors"
)

type lazyOperation struct {
	declaring attrs.Definer
	fn        func(declaring, related attrs.Definer)
}

var (
	pendingMu         sync.Mutex
	pendingOperations = make(map[string][]*lazyOperation)
)

// LazyModelOperation runs fn once the model named by relatedName has been
// registered. The name may be a full content type name, a short "app.Model"
// name, a bare model name, or the literal "self" for the declaring model.
// If the named model is already registered the operation runs immediately;
// otherwise it is queued and flushed exactly once from the registration
// signal.
func LazyModelOperation(declaring attrs.Definer, relatedName string, fn func(declaring, related attrs.Definer)) {
	if relatedName == "self" {
		fn(declaring, declaring)
		return
	}

	if related, ok := lookupRegistered(relatedName); ok {
		fn(declaring, related)
		return
	}

	if def := contenttypes.DefinitionForType(relatedName); def != nil {
		if related, ok := def.ContentObject.(attrs.Definer); ok {
			fn(declaring, related)
			return
		}
	}

	pendingMu.Lock()
	pendingOperations[relatedName] = append(pendingOperations[relatedName], &lazyOperation{
		declaring: declaring,
		fn:        fn,
	})
	pendingMu.Unlock()
}

// runPendingOperations flushes operations awaiting the newly registered
// model, matching any of the names it can be referred to by. Each queued
// operation runs at most once.
func runPendingOperations(cType *contenttypes.BaseContentType[attrs.Definer], model attrs.Definer) {
	var names = []string{cType.TypeName(), cType.ShortTypeName(), cType.Model()}

	var ops []*lazyOperation
	pendingMu.Lock()
	for _, name := range names {
		ops = append(ops, pendingOperations[name]...)
		delete(pendingOperations, name)
	}
	pendingMu.Unlock()

	for _, op := range ops {
		logger.Debugf(
			"polymodels: resolving lazy reference %q for %T",
			cType.ShortTypeName(), op.declaring,
		)
		op.fn(op.declaring, model)
	}
}

// LazyContentTypeQuerySet defers building the content type choice queryset
// until first use, because the relation's target type (and therefore its
// effective filter) may not be resolvable when a form is being described.
//
// The backing queryset is materialized exactly once; the wrapper is not
// reusable for a different filter afterwards.
type LazyContentTypeQuerySet struct {
	rel *PolymorphicManyToOneRel
	db  string

	once         sync.Once
	materialized atomic.Bool
	qs           *queries.QuerySet[*ContentType]
	err          error
}

func NewLazyContentTypeQuerySet(rel *PolymorphicManyToOneRel, db string) *LazyContentTypeQuerySet {
	return &LazyContentTypeQuerySet{rel: rel, db: db}
}

// Materialized reports whether the backing queryset has been built yet.
func (l *LazyContentTypeQuerySet) Materialized() bool {
	return l.materialized.Load()
}

func (l *LazyContentTypeQuerySet) setup() (*queries.QuerySet[*ContentType], error) {
	l.once.Do(func() {
		defer l.materialized.Store(true)

		if _, ok := l.rel.PolymorphicType(); !ok {
			var name, _ = l.rel.UnresolvedTypeName()
			l.err = errors.Wrapf(
				poly_errors.ErrTypeNotResolved,
				"cannot build content type queryset for %q", name,
			)
			return
		}

		var limitChoicesTo, err = l.rel.LimitChoicesTo()
		if err != nil {
			l.err = err
			return
		}

		l.qs, l.err = filterContentTypes(
			queries.GetQuerySet(&ContentType{db: l.db}), limitChoicesTo,
		)
	})
	return l.qs, l.err
}

func filterContentTypes(qs *queries.QuerySet[*ContentType], filter any) (*queries.QuerySet[*ContentType], error) {
	switch f := filter.(type) {
	case nil:
		return qs, nil
	case map[string]any:
		for k, v := range f {
			qs = qs.Filter(k, asValues(v)...)
		}
		return qs, nil
	case expr.Expression:
		return qs.Filter(f), nil
	}
	return nil, errors.Errorf("cannot filter content types with %T", filter)
}

// QuerySet returns the materialized backing queryset.
func (l *LazyContentTypeQuerySet) QuerySet() (*queries.QuerySet[*ContentType], error) {
	return l.setup()
}

// All returns every valid content type row.
func (l *LazyContentTypeQuerySet) All() ([]*ContentType, error) {
	var qs, err = l.setup()
	if err != nil {
		return nil, err
	}
	rows, err := qs.All()
	if err != nil {
		return nil, err
	}
	var result = make([]*ContentType, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.Object)
	}
	return result, nil
}

// Count returns the number of valid content type rows.
func (l *LazyContentTypeQuerySet) Count() (int64, error) {
	var qs, err = l.setup()
	if err != nil {
		return 0, err
	}
	return qs.Count()
}

// GetByKey returns the valid content type row matching the relation's key
// field, or poly_errors.ErrInvalidContentType when the value is not among
// the valid choices.
func (l *LazyContentTypeQuerySet) GetByKey(value any) (*ContentType, error) {
	var qs, err = l.setup()
	if err != nil {
		return nil, err
	}
	row, err := qs.Filter(l.rel.keyField, value).First()
	if err != nil || row == nil {
		return nil, errors.Wrapf(
			poly_errors.ErrInvalidContentType, "%v", value,
		)
	}
	return row.Object, nil
}
