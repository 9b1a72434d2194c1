package polymodels_test

import (
	"reflect"
	"testing"

	polymodels "github.com/Nigel2392/go-django-polymodels/src"
	"github.com/Nigel2392/go-django-polymodels/src/poly_errors"
	"github.com/Nigel2392/go-django-queries/src/expr"
	"github.com/pkg/errors"
)

func TestLimitChoicesTo(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		var rel = polymodels.NewPolymorphicManyToOneRel(&Animal{}, "")

		var filter, err = rel.LimitChoicesTo()
		if err != nil {
			t.Fatalf("failed to compute filter: %v", err)
		}

		lookup, err := polymodels.SubclassesLookup(&Animal{}, "")
		if err != nil {
			t.Fatalf("failed to build subclasses lookup: %v", err)
		}

		if !reflect.DeepEqual(filter, lookup) {
			t.Errorf("expected filter %v, got %v", lookup, filter)
		}
	})

	t.Run("Cached", func(t *testing.T) {
		var rel = polymodels.NewPolymorphicManyToOneRel(&Animal{}, "")

		var f1, err = rel.LimitChoicesTo()
		if err != nil {
			t.Fatalf("failed to compute filter: %v", err)
		}
		f2, err := rel.LimitChoicesTo()
		if err != nil {
			t.Fatalf("failed to compute filter: %v", err)
		}

		if reflect.ValueOf(f1).Pointer() != reflect.ValueOf(f2).Pointer() {
			t.Error("expected second call to return the cached filter")
		}
	})

	t.Run("MapOverride", func(t *testing.T) {
		var rel = polymodels.NewPolymorphicManyToOneRel(&Animal{}, "")
		rel.SetLimitChoicesTo(map[string]any{"AppLabel": "zoo"})

		var filter, err = rel.LimitChoicesTo()
		if err != nil {
			t.Fatalf("failed to compute filter: %v", err)
		}

		var m = filter.(map[string]any)
		if m["AppLabel"] != "zoo" {
			t.Errorf("expected override key to survive the merge, got %v", m)
		}
		if _, ok := m["ID__in"]; !ok {
			t.Errorf("expected subclass constraint in merged filter, got %v", m)
		}
	})

	t.Run("MapOverrideCollision", func(t *testing.T) {
		var rel = polymodels.NewPolymorphicManyToOneRel(&Animal{}, "")
		rel.SetLimitChoicesTo(map[string]any{"ID__in": []any{int64(987654)}})

		var filter, err = rel.LimitChoicesTo()
		if err != nil {
			t.Fatalf("failed to compute filter: %v", err)
		}

		lookup, err := polymodels.SubclassesLookup(&Animal{}, "")
		if err != nil {
			t.Fatalf("failed to build subclasses lookup: %v", err)
		}

		var m = filter.(map[string]any)
		if !reflect.DeepEqual(m["ID__in"], lookup["ID__in"]) {
			t.Errorf("expected subclass constraint to win the collision, got %v", m["ID__in"])
		}
	})

	t.Run("ExpressionOverride", func(t *testing.T) {
		var rel = polymodels.NewPolymorphicManyToOneRel(&Animal{}, "")
		rel.SetLimitChoicesTo(expr.Q("AppLabel", "zoo"))

		var filter, err = rel.LimitChoicesTo()
		if err != nil {
			t.Fatalf("failed to compute filter: %v", err)
		}

		if _, ok := filter.(expr.Expression); !ok {
			t.Errorf("expected an expression filter, got %T", filter)
		}
	})

	t.Run("Unresolved", func(t *testing.T) {
		var rel = polymodels.NewPolymorphicManyToOneRel("NeverRegisteredModel", "")

		var _, err = rel.LimitChoicesTo()
		if !errors.Is(err, poly_errors.ErrTypeNotResolved) {
			t.Errorf("expected ErrTypeNotResolved, got %v", err)
		}
	})
}

func TestSetLimitChoicesTo(t *testing.T) {
	var rel = polymodels.NewPolymorphicManyToOneRel(&Animal{}, "")

	var cached, err = rel.LimitChoicesTo()
	if err != nil {
		t.Fatalf("failed to compute filter: %v", err)
	}

	var prev = rel.SetLimitChoicesTo(nil)
	if !reflect.DeepEqual(prev, cached) {
		t.Errorf("expected SetLimitChoicesTo to return the evicted filter, got %v", prev)
	}

	if prev = rel.SetLimitChoicesTo(nil); prev != nil {
		t.Errorf("expected no cached filter after eviction, got %v", prev)
	}

	recomputed, err := rel.LimitChoicesTo()
	if err != nil {
		t.Fatalf("failed to recompute filter: %v", err)
	}
	if recomputed == nil {
		t.Fatal("expected the filter to be recomputed after eviction")
	}
}
