package polymodels_test

import (
	"database/sql"
	"os"

	polymodels "github.com/Nigel2392/go-django-polymodels/src"
	"github.com/Nigel2392/go-django-queries/src/models"
	django "github.com/Nigel2392/go-django/src"
	"github.com/Nigel2392/go-django/src/core/attrs"
	"github.com/Nigel2392/go-django/src/core/logger"

	_ "github.com/mattn/go-sqlite3"
)

const (
	createTableContentTypes = `CREATE TABLE IF NOT EXISTS content_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	app_label TEXT,
	model TEXT
)`
	createTableTraits = `CREATE TABLE IF NOT EXISTS traits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT,
	content_type_id INTEGER,
	FOREIGN KEY(content_type_id) REFERENCES content_types(id)
)`
)

func init() {
	var db, err = sql.Open("sqlite3", "file:polymodels_memory?mode=memory&cache=shared")
	if err != nil {
		panic(err)
	}

	_, err = db.Exec(createTableContentTypes)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(createTableTraits)
	if err != nil {
		panic(err)
	}

	logger.Setup(&logger.Logger{
		Level:       logger.DBG,
		WrapPrefix:  logger.ColoredLogWrapper,
		OutputDebug: os.Stdout,
		OutputInfo:  os.Stdout,
		OutputWarn:  os.Stdout,
		OutputError: os.Stdout,
	})

	django.App(django.Configure(map[string]interface{}{
		django.APPVAR_DATABASE: db,
	}))

	attrs.RegisterModel(&Animal{})
	attrs.RegisterModel(&Mammal{})
	attrs.RegisterModel(&Monkey{})
	attrs.RegisterModel(&Snake{})
	attrs.RegisterModel(&Vehicle{})
	attrs.RegisterModel(&Trait{})
}

type Animal struct {
	polymodels.PolymorphicModel
	ID   int64
	Name string
}

func (a *Animal) FieldDefs() attrs.Definitions {
	return a.Model.Define(a,
		attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
		attrs.Unbound("Name"),
	).WithTableName("animals")
}

type Mammal struct {
	Animal
}

func (m *Mammal) FieldDefs() attrs.Definitions {
	return m.Model.Define(m,
		attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
		attrs.Unbound("Name"),
	).WithTableName("mammals")
}

type Monkey struct {
	Mammal
}

func (m *Monkey) FieldDefs() attrs.Definitions {
	return m.Model.Define(m,
		attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
		attrs.Unbound("Name"),
	).WithTableName("monkeys")
}

type Snake struct {
	Animal
}

func (s *Snake) FieldDefs() attrs.Definitions {
	return s.Model.Define(s,
		attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
		attrs.Unbound("Name"),
	).WithTableName("snakes")
}

// Vehicle is registered but unrelated to the Animal hierarchy.
type Vehicle struct {
	models.Model
	ID   int64
	Name string
}

func (v *Vehicle) FieldDefs() attrs.Definitions {
	return v.Model.Define(v,
		attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
		attrs.Unbound("Name"),
	).WithTableName("vehicles")
}

type Trait struct {
	models.Model
	ID          int64
	Label       string
	ContentType *polymodels.ContentType
}

func (t *Trait) FieldDefs() attrs.Definitions {
	return t.Model.Define(t,
		attrs.Unbound("ID", &attrs.FieldConfig{Primary: true}),
		attrs.Unbound("Label"),
		polymodels.ContentTypeField("ContentType", &Animal{}, &polymodels.FieldConfig{
			ColumnName: "content_type_id",
		}),
	).WithTableName("traits")
}
