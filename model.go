package ormbase

// Field describes a single column of a Model's schema.
// Schema() and Values() MUST always be in the same field order.
type Field struct {
	Name        string
	Type        FieldType
	Constraints Constraint
	Ref         string // FK: target table name. Empty = no FK.
	RefColumn   string // FK: target column.
	Default     string // persisted default expression. Empty = none.
}

// Model is one physical row as seen by the DB layer. Records expose one
// Model per table in their inheritance chain.
type Model interface {
	TableName() string
	Schema() []Field
	Values() []any
	Pointers() []any
}

// Returner is implemented by models whose key is generated on insert.
// The generated value is scanned into dest.
type Returner interface {
	Returning() (column string, dest any)
}

// Columns returns the schema's column names in order.
func Columns(m Model) []string {
	schema := m.Schema()
	cols := make([]string, len(schema))
	for i, f := range schema {
		cols[i] = f.Name
	}
	return cols
}
