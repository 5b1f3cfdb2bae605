package ormbase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywasm/ormbase"
)

func columnNames(cols []*ormbase.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func tableNames(tables []*ormbase.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

func TestRegisterRoot(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "person", f.person.TableName())
	assert.Equal(t, ormbase.Join, f.person.Mode())
	assert.Nil(t, f.person.Parent())
	assert.Same(t, f.person, f.person.Root())

	pk := f.person.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Name)
	assert.Equal(t, ormbase.KindObjectID, pk.Type.Kind)
	assert.Same(t, pk, f.person.Table().PrimaryKey())

	assert.Equal(t,
		[]string{"id", "created_at", "modified_at", "name", "email", "active", "row_type"},
		columnNames(f.person.Columns()))

	d := f.person.Discriminator()
	require.NotNil(t, d)
	assert.Equal(t, ormbase.DiscriminatorColumn, d.Name)
	assert.Equal(t, 50, d.Type.Length)
	assert.True(t, d.Index)
	assert.Same(t, f.person.Table(), d.Table())

	assert.Equal(t, "invoice", f.invoice.TableName())
	assert.Nil(t, f.invoice.Discriminator())
	assert.True(t, f.invoice.Immutable())
}

func TestRegisterJoinSubtype(t *testing.T) {
	f := newFixture(t)
	emp := f.employee

	assert.Equal(t, ormbase.Join, emp.Mode(), "mode is inherited from the base type")
	assert.Same(t, f.person, emp.Parent())
	assert.Same(t, f.person, emp.Root())
	assert.Equal(t, "person_employee", emp.TableName())
	assert.Equal(t, []string{"person", "person_employee"}, tableNames(emp.Tables()))
	assert.Same(t, f.person.Table(), emp.Table().Parent)

	pk := emp.PrimaryKey()
	assert.Equal(t, "id", pk.Name)
	assert.True(t, pk.PrimaryKey)
	assert.Equal(t, "person.id", pk.ForeignKey)
	assert.Same(t, emp.Table(), pk.Table())
	assert.NotSame(t, f.person.PrimaryKey(), pk)

	assert.Same(t, f.person.Column("name"), emp.Column("name"))
	assert.Same(t, f.person.Discriminator(), emp.Discriminator())
	assert.Equal(t, []string{"id", "title", "salary"}, columnNames(emp.Table().Columns()))

	assert.True(t, emp.IsSubtypeOf(f.person))
	assert.True(t, emp.IsSubtypeOf(emp))
	assert.False(t, f.person.IsSubtypeOf(emp))
	assert.False(t, emp.IsSubtypeOf(f.customer))
}

func TestRegisterSingleSubtype(t *testing.T) {
	f := newFixture(t)
	cust := f.customer

	assert.Equal(t, ormbase.Single, cust.Mode())
	assert.Same(t, f.person.Table(), cust.Table())
	assert.Equal(t, []string{"person"}, tableNames(cust.Tables()))
	assert.Same(t, f.person.PrimaryKey(), cust.PrimaryKey())
	assert.Same(t, f.person.Discriminator(), cust.Discriminator())

	tier := cust.Column("tier")
	require.NotNil(t, tier)
	assert.Same(t, f.person.Table(), tier.Table(), "single-table columns extend the base table")
	assert.Nil(t, f.person.Column("tier"))
	assert.NotNil(t, f.person.Table().Column("tier"))
}

func TestHierarchy(t *testing.T) {
	f := newFixture(t)

	h, ok := f.reg.Hierarchy("Person")
	require.True(t, ok)
	assert.Same(t, f.person.Hierarchy(), h)
	assert.Same(t, f.employee.Hierarchy(), h)
	assert.Same(t, f.person, h.Root)

	for _, rt := range []*ormbase.RecordType{f.person, f.employee, f.customer} {
		got, ok := h.Type(rt.Identity())
		require.True(t, ok, rt.Name)
		assert.Same(t, rt, got)
	}
	_, ok = h.Type("Invoice")
	assert.False(t, ok)

	assert.Equal(t, []string{"invoice", "person", "person_employee"}, tableNames(f.reg.Tables()))

	var names []string
	for _, rt := range f.reg.Types() {
		names = append(names, rt.Name)
	}
	assert.Equal(t, []string{"Person", "Employee", "Customer", "Invoice"}, names)
}

func TestRegistryNew(t *testing.T) {
	f := newFixture(t)

	r, err := f.reg.New("Employee")
	require.NoError(t, err)
	emp, ok := r.(*Employee)
	require.True(t, ok)
	assert.Same(t, f.employee, emp.Type())
	assert.Equal(t, "Employee", emp.Get(ormbase.DiscriminatorColumn))
	assert.False(t, emp.Exists())

	_, err = f.reg.New("Vendor")
	assert.ErrorIs(t, err, ormbase.ErrUnknownType)
	var ute *ormbase.UnknownTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "Vendor", ute.Name)

	rt, ok := f.reg.Lookup("Customer")
	require.True(t, ok)
	assert.Same(t, f.customer, rt)
}

func TestLazyDiscriminator(t *testing.T) {
	reg := ormbase.NewRegistry()
	vehicle := reg.MustRegister(ormbase.TypeDef{
		Name:    "Vehicle",
		Columns: []ormbase.ColumnDef{ormbase.Col("wheels", ormbase.Integer())},
		New:     func() ormbase.Record { return &plain{} },
	})
	assert.Nil(t, vehicle.Discriminator())
	assert.Equal(t, ormbase.Inherit, vehicle.Mode())

	truck := reg.MustRegister(ormbase.TypeDef{
		Name:        "Truck",
		Extends:     []ormbase.Inheritable{vehicle},
		Polymorphic: ormbase.Single,
		New:         func() ormbase.Record { return &plain{} },
	})
	d := vehicle.Discriminator()
	require.NotNil(t, d, "discriminator is created when the first subtype appears")
	assert.Same(t, d, truck.Discriminator())
	assert.Same(t, d, vehicle.Column(ormbase.DiscriminatorColumn))
	assert.Same(t, d, truck.Column(ormbase.DiscriminatorColumn))
}

func TestRegisterErrors(t *testing.T) {
	newPlain := func() ormbase.Record { return &plain{} }

	cases := map[string]func(reg *ormbase.Registry, f *fixture) error{
		"multiple mapped bases": func(reg *ormbase.Registry, f *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{
				Name:    "Contractor",
				Extends: []ormbase.Inheritable{f.person, f.invoice},
				New:     newPlain,
			})
			return err
		},
		"no polymorphic mode": func(reg *ormbase.Registry, f *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{
				Name:    "Refund",
				Extends: []ormbase.Inheritable{f.invoice},
				New:     newPlain,
			})
			return err
		},
		"subtype primary key": func(reg *ormbase.Registry, f *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{
				Name:    "Intern",
				Extends: []ormbase.Inheritable{f.employee},
				Columns: []ormbase.ColumnDef{ormbase.Col("intern_id", ormbase.Integer(), ormbase.PrimaryKey())},
				New:     newPlain,
			})
			return err
		},
		"two primary keys": func(reg *ormbase.Registry, _ *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{
				Name: "Pair",
				Columns: []ormbase.ColumnDef{
					ormbase.Col("a", ormbase.Integer(), ormbase.PrimaryKey()),
					ormbase.Col("b", ormbase.Integer(), ormbase.PrimaryKey()),
				},
				New: newPlain,
			})
			return err
		},
		"undeclared read-only field": func(reg *ormbase.Registry, _ *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{
				Name:     "Ledger",
				ReadOnly: []string{"balance"},
				New:      newPlain,
			})
			return err
		},
		"duplicate name": func(reg *ormbase.Registry, _ *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{Name: "Person", New: newPlain})
			return err
		},
		"duplicate column": func(reg *ormbase.Registry, f *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{
				Name:        "Lead",
				Extends:     []ormbase.Inheritable{f.person},
				Polymorphic: ormbase.Single,
				Columns:     []ormbase.ColumnDef{ormbase.Col("name", ormbase.Unicode(10))},
				New:         newPlain,
			})
			return err
		},
		"missing constructor": func(reg *ormbase.Registry, _ *fixture) error {
			_, err := reg.Register(ormbase.TypeDef{Name: "Ghost"})
			return err
		},
		"base from another registry": func(_ *ormbase.Registry, f *fixture) error {
			_, err := ormbase.NewRegistry().Register(ormbase.TypeDef{
				Name:    "Stray",
				Extends: []ormbase.Inheritable{f.person},
				New:     newPlain,
			})
			return err
		},
	}

	for name, register := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			err := register(f.reg, f)
			require.Error(t, err)
			assert.ErrorIs(t, err, ormbase.ErrConfig)
			var cfg *ormbase.ConfigError
			assert.True(t, errors.As(err, &cfg))
		})
	}
}

func TestFailedRegisterLeavesNoTrace(t *testing.T) {
	newPlain := func() ormbase.Record { return &plain{} }
	reg := ormbase.NewRegistry()
	animal := reg.MustRegister(ormbase.TypeDef{
		Name:    "Animal",
		Columns: []ormbase.ColumnDef{ormbase.Col("name", ormbase.Unicode(20))},
		New:     newPlain,
	})

	failures := []ormbase.TypeDef{
		{Name: "Dog", Polymorphic: ormbase.Single, Columns: []ormbase.ColumnDef{
			ormbase.Col("bark", ormbase.Unicode(10)),
			ormbase.Col("bark", ormbase.Unicode(10)),
		}},
		{Name: "Dog", Polymorphic: ormbase.Single, ReadOnly: []string{"wag"}, Columns: []ormbase.ColumnDef{
			ormbase.Col("bark", ormbase.Unicode(10)),
		}},
		{Name: "Dog", Polymorphic: ormbase.Join, Columns: []ormbase.ColumnDef{
			ormbase.Col("bark", ormbase.Unicode(10)),
			ormbase.Col(ormbase.DiscriminatorColumn, ormbase.Unicode(10)),
		}},
	}
	for _, def := range failures {
		def.Extends = []ormbase.Inheritable{animal}
		def.New = newPlain
		_, err := reg.Register(def)
		require.ErrorIs(t, err, ormbase.ErrConfig)

		assert.Equal(t, []string{"id", "name"}, columnNames(animal.Table().Columns()))
		assert.Nil(t, animal.Discriminator())
		_, found := reg.Lookup("Dog")
		assert.False(t, found)
	}

	dog, err := reg.Register(ormbase.TypeDef{
		Name:        "Dog",
		Extends:     []ormbase.Inheritable{animal},
		Polymorphic: ormbase.Single,
		Columns:     []ormbase.ColumnDef{ormbase.Col("bark", ormbase.Unicode(10))},
		New:         newPlain,
	})
	require.NoError(t, err, "a corrected definition registers")
	assert.Equal(t, []string{"id", "name", "bark", ormbase.DiscriminatorColumn}, columnNames(animal.Table().Columns()))
	assert.Same(t, animal.Discriminator(), dog.Column(ormbase.DiscriminatorColumn))

	_, err = reg.Register(ormbase.TypeDef{
		Name:        "Cat",
		Extends:     []ormbase.Inheritable{animal},
		Polymorphic: ormbase.Single,
		Columns: []ormbase.ColumnDef{
			ormbase.Col("purr", ormbase.Unicode(10)),
			ormbase.Col("bark", ormbase.Unicode(10)),
		},
		New: newPlain,
	})
	require.ErrorIs(t, err, ormbase.ErrConfig, "a sibling's column on the shared table")
	assert.Nil(t, animal.Table().Column("purr"))
}

func TestMustRegisterPanics(t *testing.T) {
	reg := ormbase.NewRegistry()
	assert.Panics(t, func() { reg.MustRegister(ormbase.TypeDef{Name: "Nameless"}) })
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "single", ormbase.Single.String())
	assert.Equal(t, "join", ormbase.Join.String())
	assert.Equal(t, "inherit", ormbase.Inherit.String())
}
