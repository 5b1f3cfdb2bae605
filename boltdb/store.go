package boltdb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/tinywasm/fmt"
	"github.com/tinywasm/ormbase"
)

// ErrDuplicateKey is returned when an insert reuses a stored key.
var ErrDuplicateKey = errors.New("boltdb: duplicate key")

type record struct {
	key []byte
	row map[string]any
}

// run executes one compiled command inside tx and returns its result rows.
func run(tx *bolt.Tx, query string, args []any) ([][]any, error) {
	cmd, err := decode(query)
	if err != nil {
		return nil, err
	}
	if cmd.Table == "" {
		return nil, ormbase.ErrEmptyTable
	}
	nvals := 0
	if cmd.Action == ormbase.ActionCreate || cmd.Action == ormbase.ActionUpdate {
		nvals = len(cmd.Columns)
	}
	if len(args) != nvals+len(cmd.Conds) {
		return nil, fmt.Err("boltdb: argument count mismatch for table", cmd.Table)
	}
	values, condArgs := args[:nvals], args[nvals:]

	switch cmd.Action {
	case ormbase.ActionCreate:
		return insert(tx, cmd, values)
	case ormbase.ActionUpdate:
		return nil, update(tx, cmd, values, condArgs)
	case ormbase.ActionDelete:
		return nil, remove(tx, cmd, condArgs)
	case ormbase.ActionExists:
		found, err := scan(tx, cmd, condArgs)
		if err != nil {
			return nil, err
		}
		return [][]any{{len(found) > 0}}, nil
	case ormbase.ActionReadOne, ormbase.ActionReadAll:
		found, err := scan(tx, cmd, condArgs)
		if err != nil {
			return nil, err
		}
		out := make([][]any, len(found))
		for i, r := range found {
			out[i] = project(r.row, cmd.Columns)
		}
		return out, nil
	}
	return nil, fmt.Err("boltdb: unsupported action", int(cmd.Action))
}

func itob(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func insert(tx *bolt.Tx, cmd *command, values []any) ([][]any, error) {
	b, err := tx.CreateBucketIfNotExists([]byte(cmd.Table))
	if err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cmd.Columns)+1)
	for i, col := range cmd.Columns {
		row[col] = values[i]
	}

	var id uint64
	if v, ok := row[cmd.Key]; ok && v != nil {
		n, ok := asInt(normalize(v))
		if !ok || n <= 0 {
			return nil, fmt.Err("boltdb: invalid key for table", cmd.Table)
		}
		id = uint64(n)
		if b.Get(itob(id)) != nil {
			return nil, ErrDuplicateKey
		}
		if id > b.Sequence() {
			if err := b.SetSequence(id); err != nil {
				return nil, err
			}
		}
	} else {
		if id, err = b.NextSequence(); err != nil {
			return nil, err
		}
		row[cmd.Key] = int64(id)
	}

	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	if err := b.Put(itob(id), data); err != nil {
		return nil, err
	}
	if cmd.Returning != "" {
		return [][]any{{int64(id)}}, nil
	}
	return nil, nil
}

func update(tx *bolt.Tx, cmd *command, values, condArgs []any) error {
	found, err := scan(tx, cmd, condArgs)
	if err != nil || len(found) == 0 {
		return err
	}
	b := tx.Bucket([]byte(cmd.Table))
	for _, r := range found {
		for i, col := range cmd.Columns {
			r.row[col] = values[i]
		}
		data, err := json.Marshal(r.row)
		if err != nil {
			return err
		}
		if err := b.Put(r.key, data); err != nil {
			return err
		}
	}
	return nil
}

func remove(tx *bolt.Tx, cmd *command, condArgs []any) error {
	found, err := scan(tx, cmd, condArgs)
	if err != nil || len(found) == 0 {
		return err
	}
	b := tx.Bucket([]byte(cmd.Table))
	for _, r := range found {
		if err := b.Delete(r.key); err != nil {
			return err
		}
	}
	return nil
}

// scan returns the rows matching cmd, ordered and paged.
func scan(tx *bolt.Tx, cmd *command, condArgs []any) ([]record, error) {
	b := tx.Bucket([]byte(cmd.Table))
	if b == nil {
		return nil, nil
	}
	want := make([]any, len(condArgs))
	for i, a := range condArgs {
		want[i] = normalize(a)
	}

	var found []record
	err := b.ForEach(func(k, v []byte) error {
		row, err := decodeRow(v)
		if err != nil {
			return err
		}
		ok, err := matches(row, cmd.Conds, want)
		if err != nil {
			return err
		}
		if ok {
			found = append(found, record{key: bytes.Clone(k), row: row})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(cmd.Order) > 0 {
		sort.SliceStable(found, func(i, j int) bool {
			for _, o := range cmd.Order {
				c := compare(found[i].row[o.Column], found[j].row[o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if cmd.Offset > 0 {
		if cmd.Offset >= len(found) {
			return nil, nil
		}
		found = found[cmd.Offset:]
	}
	if cmd.Limit > 0 && len(found) > cmd.Limit {
		found = found[:cmd.Limit]
	}
	return found, nil
}

func project(row map[string]any, cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

func decodeRow(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	for k, v := range row {
		row[k] = number(v)
	}
	return row, nil
}

// normalize gives v the shape it has after a round trip through storage.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return v
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return number(out)
}

func number(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
