package ormbase

import (
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// Record is implemented by every struct embedding Base.
type Record interface {
	Meta() *Base
}

// ChangeNotifier receives every applied field write.
type ChangeNotifier interface {
	Changed(field string, old, new any)
}

// Defaulter fills computed defaults before required fields are checked.
type Defaulter interface {
	ApplyDefaults() error
}

// ExtraValidator adds record-level rules. It only runs when no required
// field is missing.
type ExtraValidator interface {
	ValidateExtra() error
}

type recordState int

const (
	stateTransient recordState = iota
	statePending
	statePersistent
	stateDeleted
)

// Base holds a record's field values and tracks their changes. Embed it in
// a struct and construct instances through RecordType.New.
type Base struct {
	typ       *RecordType
	self      Record
	values    map[string]any
	committed map[string]any
	changed   map[string]bool
	sess      *Session
	state     recordState
}

// Meta satisfies Record.
func (b *Base) Meta() *Base { return b }

func (b *Base) init(rt *RecordType, self Record) {
	b.typ = rt
	b.self = self
	b.values = make(map[string]any, len(rt.columns))
	b.changed = make(map[string]bool)
	b.state = stateTransient
	if d := rt.Discriminator(); d != nil {
		b.values[d.Name] = rt.Identity()
	}
}

// Type returns the record's descriptor.
func (b *Base) Type() *RecordType { return b.typ }

// Session returns the session tracking the record, if any.
func (b *Base) Session() *Session { return b.sess }

// ID returns the primary key, 0 before the record is flushed.
func (b *Base) ID() int64 {
	if b.typ == nil {
		return 0
	}
	n, _ := b.values[b.typ.pk.Name].(int64)
	return n
}

// Exists reports whether the record has been flushed.
func (b *Base) Exists() bool { return b.ID() > 0 }

// TypeID pairs the type name with the primary key.
func (b *Base) TypeID() (string, int64) { return b.typ.Name, b.ID() }

// Get returns a column value or a property's computed value.
func (b *Base) Get(field string) any {
	if b.typ.byName[field] != nil {
		return b.values[field]
	}
	if p, ok := b.typ.props[field]; ok && p.Get != nil {
		return p.Get(b.self)
	}
	return nil
}

func (b *Base) String(field string) string {
	s, _ := b.Get(field).(string)
	return s
}

func (b *Base) Int(field string) int64 {
	n, _ := b.Get(field).(int64)
	return n
}

func (b *Base) Bool(field string) bool {
	v, _ := b.Get(field).(bool)
	return v
}

func (b *Base) Decimal(field string) decimal.Decimal {
	d, _ := b.Get(field).(decimal.Decimal)
	return d
}

func (b *Base) Time(field string) time.Time {
	t, _ := b.Get(field).(time.Time)
	return t
}

// IsChanged reports whether field was written since the last flush or load.
func (b *Base) IsChanged(field string) bool { return b.changed[field] }

// Set validates value, compares it with the current one and, only when it
// differs, stores it and notifies the record. Read-only fields accept writes
// only through their "__name__" form.
func (b *Base) Set(field string, value any) error {
	rt := b.typ
	if len(rt.readOnly) > 0 {
		if strings.HasPrefix(field, "__") && strings.HasSuffix(field, "__") && len(field) > 4 {
			if name := field[2 : len(field)-2]; rt.readOnly[name] {
				field = name
			}
		} else if rt.readOnly[field] {
			return &ReadOnlyError{Type: rt.Name, Field: field}
		}
	}

	col := rt.byName[field]
	prop, isProp := rt.props[field]
	if col == nil && !isProp {
		return &UnknownFieldError{Type: rt.Name, Field: field}
	}

	changed := true
	var old any
	if col != nil {
		v, err := col.Validate(value)
		if err != nil {
			return tagFieldError(err, field, rt.Name)
		}
		value = v
		old = b.values[field]
		changed = !valuesEqual(old, value)
	} else if prop.Get != nil {
		old = prop.Get(b.self)
	}
	if !changed {
		return nil
	}

	switch {
	case isProp && prop.Set != nil:
		if err := prop.Set(b.self, value); err != nil {
			return err
		}
	case col != nil:
		b.values[field] = value
	default:
		return &ReadOnlyError{Type: rt.Name, Field: field}
	}

	b.markChanged(field)
	if n, ok := b.self.(ChangeNotifier); ok {
		n.Changed(field, old, value)
	}
	return nil
}

// Store writes a column value without validation or notification. Property
// setters sharing a column's name use it to persist what they computed.
func (b *Base) Store(field string, value any) error {
	if b.typ.byName[field] == nil {
		return &UnknownFieldError{Type: b.typ.Name, Field: field}
	}
	b.values[field] = value
	b.markChanged(field)
	return nil
}

func (b *Base) markChanged(field string) {
	if b.typ.byName[field] == nil {
		return
	}
	b.changed[field] = true
	if b.state == statePersistent && b.sess != nil {
		b.sess.touch(b.self)
	}
}

// load replaces the stored values without validation or notification.
func (b *Base) load(values map[string]any) {
	for k, v := range values {
		b.values[k] = v
	}
	b.commit()
}

// commit makes the current values the new baseline.
func (b *Base) commit() {
	b.committed = make(map[string]any, len(b.values))
	for k, v := range b.values {
		b.committed[k] = v
	}
	b.changed = make(map[string]bool)
}

// restore reverts to the last baseline.
func (b *Base) restore() {
	b.values = make(map[string]any, len(b.committed))
	for k, v := range b.committed {
		b.values[k] = v
	}
	b.changed = make(map[string]bool)
}

func (b *Base) dirty() bool { return len(b.changed) > 0 }

// ToMap returns the record's reference form: its id and class name, plus
// a recurse flag when the record's type is listed in recurse.
func (b *Base) ToMap(recurse ...*RecordType) map[string]any {
	var id any
	if b.Exists() {
		id = b.ID()
	}
	m := map[string]any{"id": id, "__class__": b.typ.Name}
	for _, rt := range recurse {
		if rt == b.typ {
			m["recurse"] = true
			break
		}
	}
	return m
}

// valuesEqual compares normalized values. Values cmp cannot inspect are
// treated as different.
func valuesEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return cmp.Equal(a, b)
}

// tagFieldError attaches the field and type to a validator failure.
func tagFieldError(err error, field, table string) error {
	fe, ok := err.(*FieldError)
	if !ok {
		return err
	}
	tagged := *fe
	tagged.Field = field
	tagged.Table = table
	return &tagged
}
