package ormbase

import (
	"errors"
	"reflect"
)

const msgRequired = "Please enter a value"

// IsEmpty reports whether v counts as missing: nil, "", or an empty
// slice, array or map.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsEmpty is the record-level form of the package IsEmpty.
func (b *Base) IsEmpty(v any) bool { return IsEmpty(v) }

// Validate applies defaults, checks required fields and, when none is
// missing, runs ValidateExtra. Every problem is returned at once in a
// *ValidationErrors.
func (b *Base) Validate() error {
	if d, ok := b.self.(Defaulter); ok {
		if err := d.ApplyDefaults(); err != nil {
			return err
		}
	}

	errs := &ValidationErrors{}
	for _, c := range b.typ.columns {
		if c.Nullable || c.PrimaryKey || c.IsForeignKey() || c.HasDefault() {
			continue
		}
		if IsEmpty(b.values[c.Name]) {
			errs.Add(&FieldError{Field: c.Name, Table: b.typ.Name, Message: msgRequired})
		}
	}

	if errs.Len() == 0 {
		if v, ok := b.self.(ExtraValidator); ok {
			if err := v.ValidateExtra(); err != nil {
				if !errors.Is(err, ErrValidation) {
					return err
				}
				if !errs.Merge(err) {
					errs.Add(&FieldError{Message: err.Error()})
				}
				for _, fes := range errs.Errors {
					for i, fe := range fes {
						if fe.Table == "" {
							tagged := *fe
							tagged.Table = b.typ.Name
							fes[i] = &tagged
						}
					}
				}
			}
		}
	}

	if errs.Len() > 0 {
		return errs
	}
	return nil
}
