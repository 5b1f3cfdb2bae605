package ormbase_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinywasm/ormbase"
	"github.com/tinywasm/ormbase/boltdb"
)

type change struct {
	field    string
	old, new any
}

// Person is the polymorphic root of the test hierarchy.
type Person struct {
	ormbase.Base
	changes []change
}

func (p *Person) Changed(field string, old, new any) {
	p.changes = append(p.changes, change{field, old, new})
}

// Employee is stored in its own table joined to person.
type Employee struct{ Person }

// Customer shares the person table.
type Customer struct{ Person }

// Invoice cannot change once written.
type Invoice struct{ ormbase.Base }

type fixture struct {
	reg      *ormbase.Registry
	person   *ormbase.RecordType
	employee *ormbase.RecordType
	customer *ormbase.RecordType
	invoice  *ormbase.RecordType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := ormbase.NewRegistry()
	f := &fixture{reg: reg}
	var err error

	f.person, err = reg.Register(ormbase.TypeDef{
		Name:        "Person",
		Extends:     []ormbase.Inheritable{ormbase.Timestamp},
		Polymorphic: ormbase.Join,
		Columns: []ormbase.ColumnDef{
			ormbase.Col("name", ormbase.Unicode(100), ormbase.NotNull()),
			ormbase.Col("email", ormbase.Email()),
			ormbase.Col("active", ormbase.Boolean(), ormbase.Default(true)),
		},
		New: func() ormbase.Record { return &Person{} },
	})
	require.NoError(t, err)

	f.employee, err = reg.Register(ormbase.TypeDef{
		Name:    "Employee",
		Extends: []ormbase.Inheritable{f.person},
		Columns: []ormbase.ColumnDef{
			ormbase.Col("title", ormbase.Unicode(50), ormbase.NotNull()),
			ormbase.Col("salary", ormbase.Currency()),
		},
		New: func() ormbase.Record { return &Employee{} },
	})
	require.NoError(t, err)

	f.customer, err = reg.Register(ormbase.TypeDef{
		Name:        "Customer",
		Extends:     []ormbase.Inheritable{f.person},
		Polymorphic: ormbase.Single,
		Columns: []ormbase.ColumnDef{
			ormbase.Col("tier", ormbase.Enum([]string{"gold", "silver"}, 10)),
		},
		New: func() ormbase.Record { return &Customer{} },
	})
	require.NoError(t, err)

	f.invoice, err = reg.Register(ormbase.TypeDef{
		Name:      "Invoice",
		Immutable: true,
		Columns: []ormbase.ColumnDef{
			ormbase.Col("number", ormbase.Unicode(20), ormbase.NotNull()),
			ormbase.Col("total", ormbase.Decimal()),
			ormbase.Col("person_id", ormbase.ObjectID(), ormbase.ForeignKey("person.id"), ormbase.NotNull()),
		},
		New: func() ormbase.Record { return &Invoice{} },
	})
	require.NoError(t, err)
	return f
}

// session opens a bbolt-backed session in a fresh temporary file.
func (f *fixture) session(t *testing.T) (*ormbase.Session, *ormbase.DB) {
	t.Helper()
	db, err := boltdb.New(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := ormbase.NewSession(db, f.reg)
	require.NoError(t, err)
	return s, db
}

// reopen returns a second session over the same database.
func (f *fixture) reopen(t *testing.T, db *ormbase.DB) *ormbase.Session {
	t.Helper()
	s, err := ormbase.NewSession(db, f.reg)
	require.NoError(t, err)
	return s
}

func (f *fixture) newPerson(t *testing.T, name string) *Person {
	t.Helper()
	p := f.person.New().(*Person)
	require.NoError(t, p.Set("name", name))
	p.changes = nil
	return p
}
