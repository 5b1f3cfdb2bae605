package ormbase

// FieldType represents the abstract storage type of a column.
type FieldType int

const (
	TypeText FieldType = iota
	TypeInt64
	TypeFloat64
	TypeBool
	TypeBlob
	TypeDecimal
	TypeDate
	TypeTime
	TypeDateTime
)

var fieldTypeNames = [...]string{
	TypeText:     "text",
	TypeInt64:    "int64",
	TypeFloat64:  "float64",
	TypeBool:     "bool",
	TypeBlob:     "blob",
	TypeDecimal:  "decimal",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeDateTime: "datetime",
}

func (t FieldType) String() string {
	if t >= 0 && int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return "unknown"
}

// Constraint is a bitmask of column-level constraints.
// ConstraintNone = 0 is defined separately to avoid shifting iota off-by-one.
type Constraint int

const ConstraintNone Constraint = 0

const (
	ConstraintPK            Constraint = 1 << iota // 1: Primary Key
	ConstraintUnique                               // 2: UNIQUE
	ConstraintNotNull                              // 4: NOT NULL
	ConstraintAutoIncrement                        // 8: generated key
	ConstraintIndex                                // 16: secondary index
)

// Has reports whether every bit of c2 is set in c.
func (c Constraint) Has(c2 Constraint) bool { return c&c2 == c2 }
