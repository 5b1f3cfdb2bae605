package ormbase

import (
	"errors"

	"golang.org/x/text/unicode/norm"
)

// ForID fetches the record of type rt keyed by id, or returns a fresh
// instance: for a nil id, and on a miss. A record of type rt is returned
// unchanged. Numeric ids are coerced to int64; anything else is used as
// an opaque key.
func (s *Session) ForID(rt *RecordType, id any, opts ...QueryOption) (Record, error) {
	if id == nil {
		return rt.New(), nil
	}
	if r, ok := id.(Record); ok && r.Meta().typ != nil && r.Meta().typ.IsSubtypeOf(rt) {
		return r, nil
	}

	var r Record
	var err error
	key := coerceID(id)
	if n, ok := key.(int64); ok && len(opts) == 0 {
		r, err = s.Get(rt, n)
	} else {
		r, err = s.Query(rt).Where(Eq(rt.pk.Name, key)).Options(opts...).First()
	}
	if errors.Is(err, ErrNotFound) {
		return rt.New(), nil
	}
	return r, err
}

// ExistsByID reports whether a record of type rt with key id is stored.
func (s *Session) ExistsByID(rt *RecordType, id any) (bool, error) {
	return s.Query(rt).Where(Eq(rt.pk.Name, coerceID(id))).Exists()
}

func coerceID(id any) any {
	if n, ok, err := toInt64(id); err == nil && ok {
		return n
	}
	return id
}

// Factory looks records up by a fixed list of fields.
type Factory struct {
	rt     *RecordType
	fields []string
	opts   []QueryOption
}

// CreateFactory returns a reusable lookup filtering rt by fields, in order.
func CreateFactory(rt *RecordType, fields ...string) *Factory {
	return &Factory{rt: rt, fields: fields}
}

// WithOptions returns a copy of f applying opts to every lookup.
func (f *Factory) WithOptions(opts ...QueryOption) *Factory {
	cp := *f
	cp.opts = append(append([]QueryOption(nil), f.opts...), opts...)
	return &cp
}

// One returns the single record matching values, or a fresh instance when
// none does. More than one match is ErrMultipleResults.
func (f *Factory) One(s *Session, values ...any) (Record, error) {
	q, err := f.query(s, values)
	if err != nil {
		return nil, err
	}
	r, err := q.One()
	if errors.Is(err, ErrNotFound) {
		return f.rt.New(), nil
	}
	return r, err
}

// All returns every record matching values.
func (f *Factory) All(s *Session, values ...any) ([]Record, error) {
	q, err := f.query(s, values)
	if err != nil {
		return nil, err
	}
	return q.All()
}

func (f *Factory) query(s *Session, values []any) (*RecordQuery, error) {
	q := s.Query(f.rt)
	for i, field := range f.fields {
		if i >= len(values) {
			break
		}
		col := f.rt.Column(field)
		if col == nil {
			return nil, &UnknownFieldError{Type: f.rt.Name, Field: field}
		}
		v := values[i]
		if nv, err := col.Validate(v); err == nil {
			v = nv
		}
		if str, ok := v.(string); ok {
			v = norm.NFC.String(str)
		}
		q.Where(Eq(field, v))
	}
	return q.Options(f.opts...), nil
}
