package boltdb

import (
	"strconv"

	"github.com/tinywasm/fmt"
	"github.com/tinywasm/ormbase"
)

type row struct {
	rows [][]any
	err  error
}

// Scan reads the first result row. No row is ormbase.ErrNotFound.
func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(r.rows) == 0 {
		return ormbase.ErrNotFound
	}
	return assign(r.rows[0], dest)
}

type rows struct {
	rows [][]any
	pos  int
}

func (r *rows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return fmt.Err("boltdb: scan called without a current row")
	}
	return assign(r.rows[r.pos], dest)
}

func (r *rows) Close() error { return nil }
func (r *rows) Err() error   { return nil }

func assign(src []any, dest []any) error {
	if len(src) != len(dest) {
		return fmt.Err("boltdb: expected", strconv.Itoa(len(src)), "destinations, got", strconv.Itoa(len(dest)))
	}
	for i, v := range src {
		switch d := dest[i].(type) {
		case *any:
			*d = v
		case *int64:
			n, ok := asInt(v)
			if !ok && v != nil {
				return fmt.Err("boltdb: cannot scan into int64 column", i)
			}
			*d = n
		case *bool:
			b, _ := v.(bool)
			*d = b
		case *string:
			*d = text(v)
			if v == nil {
				*d = ""
			}
		case *float64:
			f, _ := asFloat(v)
			*d = f
		default:
			return fmt.Err("boltdb: unsupported scan destination", i)
		}
	}
	return nil
}
