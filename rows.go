package ormbase

import "strings"

// rowModel is the slice of a record stored in one physical table.
type rowModel struct {
	table     *Table
	cols      []*Column
	values    []any
	slots     []any
	returning string
	dest      any
}

func readModel(t *Table, cols []*Column) *rowModel {
	return &rowModel{table: t, cols: cols, slots: make([]any, len(cols))}
}

func (m *rowModel) fresh() *rowModel { return readModel(m.table, m.cols) }

func (m *rowModel) add(c *Column, v any) {
	m.cols = append(m.cols, c)
	m.values = append(m.values, v)
}

func (m *rowModel) TableName() string { return m.table.Name }

func (m *rowModel) Schema() []Field {
	fields := make([]Field, len(m.cols))
	for i, c := range m.cols {
		fields[i] = fieldOf(c)
	}
	return fields
}

func (m *rowModel) Values() []any { return m.values }

func (m *rowModel) Pointers() []any {
	ptrs := make([]any, len(m.slots))
	for i := range m.slots {
		ptrs[i] = &m.slots[i]
	}
	return ptrs
}

func (m *rowModel) Returning() (string, any) { return m.returning, m.dest }

func (m *rowModel) scanned() map[string]any {
	out := make(map[string]any, len(m.cols))
	for i, c := range m.cols {
		out[c.Name] = m.slots[i]
	}
	return out
}

// fieldOf describes a column to the storage layer.
func fieldOf(c *Column) Field {
	f := Field{Name: c.Name, Constraints: c.Constraints()}
	if c.Type != nil {
		f.Type = c.Type.Storage
	}
	if c.IsForeignKey() {
		f.Ref, f.RefColumn, _ = strings.Cut(c.ForeignKey, ".")
	}
	if c.ServerDefault != nil {
		f.Default = c.ServerDefault.SQL
	}
	return f
}

// Schema describes a table's columns to the storage layer.
func (t *Table) Schema() []Field {
	fields := make([]Field, len(t.columns))
	for i, c := range t.columns {
		fields[i] = fieldOf(c)
	}
	return fields
}
