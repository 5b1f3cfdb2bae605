package ormbase_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywasm/ormbase"
)

func (f *fixture) newEmployee(t *testing.T, name, title string) *Employee {
	t.Helper()
	e := f.employee.New().(*Employee)
	require.NoError(t, e.Set("name", name))
	require.NoError(t, e.Set("title", title))
	return e
}

func (f *fixture) newCustomer(t *testing.T, name, tier string) *Customer {
	t.Helper()
	c := f.customer.New().(*Customer)
	require.NoError(t, c.Set("name", name))
	require.NoError(t, c.Set("tier", tier))
	return c
}

func TestSessionInsertAndGet(t *testing.T) {
	f := newFixture(t)
	s, db := f.session(t)

	p := f.newPerson(t, "Ann")
	s.Add(p)
	assert.Len(t, s.Added(), 1)
	require.NoError(t, s.Commit())

	require.True(t, p.Exists())
	assert.Empty(t, s.Added())
	assert.False(t, p.IsChanged("name"))
	assert.True(t, p.Bool("active"), "application default applied on insert")
	assert.False(t, p.Time("created_at").IsZero())
	assert.Equal(t, "Person", p.String(ormbase.DiscriminatorColumn))

	other := f.reopen(t, db)
	got, err := other.Get(f.person, p.ID())
	require.NoError(t, err)
	loaded, ok := got.(*Person)
	require.True(t, ok)
	assert.NotSame(t, p, loaded)
	assert.Equal(t, "Ann", loaded.String("name"))
	assert.True(t, loaded.Bool("active"))
	assert.True(t, p.Time("created_at").Equal(loaded.Time("created_at")))
	assert.Same(t, other, loaded.Session())

	again, err := other.Get(f.person, p.ID())
	require.NoError(t, err)
	assert.Same(t, loaded, again, "identity map returns the loaded instance")

	_, err = other.Get(f.person, p.ID()+100)
	assert.ErrorIs(t, err, ormbase.ErrNotFound)
}

func TestSessionJoinedInheritance(t *testing.T) {
	f := newFixture(t)
	s, db := f.session(t)

	first := f.newPerson(t, "Ann")
	e := f.newEmployee(t, "Bob", "Engineer")
	require.NoError(t, e.Set("salary", "4200.25"))
	s.Add(first, e)
	require.NoError(t, s.Commit())
	require.True(t, e.Exists())
	assert.NotEqual(t, first.ID(), e.ID())

	other := f.reopen(t, db)
	got, err := other.Get(f.person, e.ID())
	require.NoError(t, err)
	emp, ok := got.(*Employee)
	require.True(t, ok, "loading through the base type yields the stored subtype")
	assert.Equal(t, e.ID(), emp.ID(), "subtype key equals the base row key")
	assert.Equal(t, "Bob", emp.String("name"))
	assert.Equal(t, "Engineer", emp.String("title"))
	assert.True(t, decimal.RequireFromString("4200.25").Equal(emp.Decimal("salary")))

	_, err = other.Get(f.employee, first.ID())
	assert.ErrorIs(t, err, ormbase.ErrNotFound, "a base row is not an employee")

	byType, err := other.Get(f.employee, e.ID())
	require.NoError(t, err)
	assert.Same(t, emp, byType)
}

func TestSessionValidationBlocksFlush(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(t)

	e := f.employee.New().(*Employee)
	require.NoError(t, e.Set("name", "Bob"))
	s.Add(e)

	err := s.Flush()
	var verrs *ormbase.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"title"}, verrs.Fields())
	assert.Zero(t, e.ID())
	assert.False(t, e.Exists())
	assert.Len(t, s.Added(), 1, "the record stays pending")

	require.NoError(t, e.Set("title", "Clerk"))
	require.NoError(t, s.Flush())
	assert.True(t, e.Exists())
}

func TestSessionUpdate(t *testing.T) {
	f := newFixture(t)
	s, db := f.session(t)

	p := f.newPerson(t, "Ann")
	s.Add(p)
	require.NoError(t, s.Flush())
	created := p.Time("created_at")
	modified := p.Time("modified_at")

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.Set("email", "ann@example.com"))
	assert.Len(t, s.Dirty(), 1)
	require.NoError(t, s.Commit())
	assert.Empty(t, s.Dirty())

	assert.True(t, p.Time("modified_at").After(modified), "modified_at is refreshed on update")
	assert.True(t, p.Time("created_at").Equal(created))

	loaded, err := f.reopen(t, db).Get(f.person, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", loaded.Meta().String("email"))
	assert.Equal(t, "Ann", loaded.Meta().String("name"))
	assert.True(t, p.Time("modified_at").Equal(loaded.Meta().Time("modified_at")))
}

func TestSessionUpdateJoinedColumns(t *testing.T) {
	f := newFixture(t)
	s, db := f.session(t)

	e := f.newEmployee(t, "Bob", "Engineer")
	s.Add(e)
	require.NoError(t, s.Commit())

	require.NoError(t, e.Set("title", "Manager"))
	require.NoError(t, s.Commit())

	got, err := f.reopen(t, db).Get(f.employee, e.ID())
	require.NoError(t, err)
	assert.Equal(t, "Manager", got.Meta().String("title"))
	assert.Equal(t, "Bob", got.Meta().String("name"))
}

func TestSessionImmutable(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(t)

	p := f.newPerson(t, "Ann")
	s.Add(p)
	require.NoError(t, s.Flush())

	inv := f.invoice.New().(*Invoice)
	require.NoError(t, inv.Set("number", "INV-1"))
	require.NoError(t, inv.Set("total", "10.00"))
	require.NoError(t, inv.Set("person_id", p.ID()))
	s.Add(inv)
	require.NoError(t, s.Flush(), "creating an immutable record is allowed")

	require.NoError(t, inv.Set("total", "12.00"))
	err := s.Flush()
	assert.ErrorIs(t, err, ormbase.ErrImmutable)
	assert.ErrorIs(t, err, ormbase.ErrConfig)
	var ie *ormbase.ImmutableError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "Invoice", ie.Type)

	s.Rollback()
	assert.True(t, decimal.RequireFromString("10").Equal(inv.Decimal("total")))

	s.Delete(inv)
	assert.ErrorIs(t, s.Flush(), ormbase.ErrImmutable)
	s.Rollback()

	next := f.invoice.New().(*Invoice)
	require.NoError(t, next.Set("number", "INV-2"))
	require.NoError(t, next.Set("person_id", p.ID()))
	s.Add(next)
	require.NoError(t, s.Flush(), "the session is usable after a rollback")
	assert.True(t, next.Exists())

	stored, err := s.Get(f.invoice, inv.ID())
	require.NoError(t, err)
	assert.Same(t, inv, stored)
}

func TestSessionRollback(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(t)

	p := f.newPerson(t, "Ann")
	s.Add(p)
	require.NoError(t, s.Flush())

	require.NoError(t, p.Set("name", "Anne"))
	pending := f.newPerson(t, "Cy")
	s.Add(pending)
	s.Rollback()

	assert.Equal(t, "Ann", p.String("name"))
	assert.False(t, p.IsChanged("name"))
	assert.Nil(t, pending.Session())
	assert.Empty(t, s.Added())
	assert.Empty(t, s.Dirty())

	exists, err := s.ExistsByID(f.person, 2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSessionDelete(t *testing.T) {
	f := newFixture(t)
	s, db := f.session(t)

	e := f.newEmployee(t, "Bob", "Engineer")
	p := f.newPerson(t, "Ann")
	s.Add(e, p)
	require.NoError(t, s.Commit())
	id := e.ID()

	loaded, err := s.Get(f.person, id)
	require.NoError(t, err)
	s.Delete(loaded)
	assert.Len(t, s.Deleted(), 1)

	_, err = s.Get(f.person, id)
	assert.ErrorIs(t, err, ormbase.ErrNotFound, "a record scheduled for deletion is hidden")

	require.NoError(t, s.Commit())
	assert.Nil(t, loaded.Meta().Session())

	other := f.reopen(t, db)
	_, err = other.Get(f.employee, id)
	assert.ErrorIs(t, err, ormbase.ErrNotFound)
	all, err := other.Query(f.person).All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ann", all[0].Meta().String("name"))

	pending := f.newPerson(t, "Cy")
	s.Add(pending)
	s.Delete(pending)
	assert.Empty(t, s.Added(), "deleting a pending record drops it")
}

func TestSessionQuery(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(t)

	s.Add(
		f.newPerson(t, "Ann"),
		f.newEmployee(t, "Bob", "Engineer"),
		f.newCustomer(t, "Cy", "gold"),
		f.newCustomer(t, "Di", "silver"),
		f.newEmployee(t, "Ed", "Engineer"),
	)
	require.NoError(t, s.Commit())

	everyone, err := s.Query(f.person).All()
	require.NoError(t, err)
	require.Len(t, everyone, 5)
	_, isEmployee := everyone[1].(*Employee)
	assert.True(t, isEmployee)
	_, isCustomer := everyone[2].(*Customer)
	assert.True(t, isCustomer)

	customers, err := s.Query(f.customer).All()
	require.NoError(t, err)
	require.Len(t, customers, 2, "single-table subtypes are filtered by row_type")
	for _, c := range customers {
		assert.Equal(t, "Customer", c.Meta().Type().Name)
	}

	gold, err := s.Query(f.customer).Where(ormbase.Eq("tier", "gold")).One()
	require.NoError(t, err)
	assert.Equal(t, "Cy", gold.Meta().String("name"))

	_, err = s.Query(f.employee).Where(ormbase.Eq("title", "Engineer")).One()
	assert.ErrorIs(t, err, ormbase.ErrMultipleResults)

	_, err = s.Query(f.employee).Where(ormbase.Eq("title", "Pilot")).One()
	assert.ErrorIs(t, err, ormbase.ErrNotFound)

	last, err := s.Query(f.person).Options(ormbase.WithOrder("name", "DESC")).First()
	require.NoError(t, err)
	assert.Equal(t, "Ed", last.Meta().String("name"))

	page, err := s.Query(f.person).Options(ormbase.WithOrder("name", "ASC"), ormbase.WithOffset(1), ormbase.WithLimit(2)).All()
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Bob", page[0].Meta().String("name"))
	assert.Equal(t, "Cy", page[1].Meta().String("name"))

	byName, err := s.Query(f.employee).Where(ormbase.Eq("name", "Ann")).All()
	require.NoError(t, err)
	assert.Empty(t, byName, "base-table conditions on a joined subtype are filtered by row_type")

	found, err := s.Query(f.person).Where(ormbase.Like("name", "D%")).Exists()
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Query(f.customer).Where(ormbase.Eq("name", "Bob")).Exists()
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Query(f.employee).Where(ormbase.Eq("name", "Bob"), ormbase.Eq("title", "Engineer")).All()
	assert.ErrorIs(t, err, ormbase.ErrUnknownField, "conditions must share one table")
}

func TestSessionFlushHooks(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(t)

	var seen int
	stop := errors.New("stop")
	s.BeforeFlush(func(_ *ormbase.Session, added, _, _ []ormbase.Record) error {
		seen = len(added)
		return stop
	})

	p := f.newPerson(t, "Ann")
	s.Add(p)
	assert.ErrorIs(t, s.Flush(), stop)
	assert.Equal(t, 1, seen)
	assert.False(t, p.Exists())
}

func TestSessionHookChangesAnotherRecord(t *testing.T) {
	f := newFixture(t)
	s, db := f.session(t)

	ann, bob := f.newPerson(t, "Ann"), f.newPerson(t, "Bob")
	s.Add(ann, bob)
	require.NoError(t, s.Commit())

	var rounds int
	s.BeforeFlush(func(_ *ormbase.Session, _, dirty, _ []ormbase.Record) error {
		rounds++
		for _, r := range dirty {
			if r == ormbase.Record(ann) {
				return bob.Set("email", "bob@example.com")
			}
		}
		return nil
	})

	require.NoError(t, ann.Set("name", "Anna"))
	require.NoError(t, s.Commit())
	assert.Equal(t, 2, rounds, "the record changed by the hook is flushed in a second round")
	assert.Empty(t, s.Dirty())

	got, err := f.reopen(t, db).Get(f.person, bob.ID())
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Meta().String("email"))
}

func TestSessionFlushLoop(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(t)

	n := 0
	s.BeforeFlush(func(s *ormbase.Session, _, _, _ []ormbase.Record) error {
		n++
		s.Add(f.newPerson(t, "Extra"))
		return nil
	})
	s.Add(f.newPerson(t, "Ann"))
	assert.ErrorIs(t, s.Flush(), ormbase.ErrFlushLoop)
}

func TestSessionIdentityEviction(t *testing.T) {
	f := newFixture(t)
	_, db := f.session(t)

	var evicted int
	s, err := ormbase.NewSession(db, f.reg,
		ormbase.WithIdentityCacheSize(1),
		ormbase.WithLog(func(messages ...any) {
			if len(messages) > 0 && messages[0] == "identity map evicted" {
				evicted++
			}
		}))
	require.NoError(t, err)

	a, b := f.newPerson(t, "Ann"), f.newPerson(t, "Bob")
	s.Add(a, b)
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, evicted)

	got, err := s.Get(f.person, a.ID())
	require.NoError(t, err)
	assert.NotSame(t, a, got, "evicted records are reloaded")
	assert.Equal(t, "Ann", got.Meta().String("name"))
}
