package ormbase

// Condition is one column filter of a query. Build it with Eq, In and the
// other helpers; compilers read it through the accessors.
type Condition struct {
	field    string
	operator string
	value    any
	logic    string
}

func (c Condition) Field() string    { return c.field }
func (c Condition) Operator() string { return c.operator }
func (c Condition) Value() any       { return c.value }

// Logic is "AND", or "OR" for conditions wrapped by Or.
func (c Condition) Logic() string { return c.logic }

func cond(field, op string, value any) Condition {
	return Condition{field: field, operator: op, value: value, logic: "AND"}
}

// Eq matches rows whose field equals value.
func Eq(field string, value any) Condition { return cond(field, "=", value) }

// Neq matches rows whose field differs from value.
func Neq(field string, value any) Condition { return cond(field, "!=", value) }

func Gt(field string, value any) Condition  { return cond(field, ">", value) }
func Gte(field string, value any) Condition { return cond(field, ">=", value) }
func Lt(field string, value any) Condition  { return cond(field, "<", value) }
func Lte(field string, value any) Condition { return cond(field, "<=", value) }

// Like matches a SQL pattern: % is any run of characters, _ exactly one.
func Like(field string, pattern any) Condition { return cond(field, "LIKE", pattern) }

// In matches rows whose field equals any of values. The session uses it
// to restrict a root table scan to the identities of a subtype.
func In(field string, values ...any) Condition { return cond(field, "IN", values) }

// Or joins c to the preceding conditions with OR instead of AND.
func Or(c Condition) Condition {
	c.logic = "OR"
	return c
}
