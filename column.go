package ormbase

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	"github.com/shopspring/decimal"
)

// Generator is an application-side default computed when a row is written.
type Generator struct {
	name string
	fn   func() any
}

// NewGenerator wraps fn as a named default generator.
func NewGenerator(name string, fn func() any) *Generator {
	return &Generator{name: name, fn: fn}
}

func (g *Generator) Name() string { return g.name }
func (g *Generator) Value() any   { return g.fn() }

// UTCNow stamps the current UTC time. As a column default it also infers a
// CURRENT_TIMESTAMP persisted default.
var UTCNow = NewGenerator("utcnow", func() any { return time.Now().UTC() })

// Expr is a SQL expression enforced by the storage engine.
type Expr struct {
	SQL string
}

func (e Expr) String() string { return e.SQL }

var (
	NullExpr             = Expr{SQL: "NULL"}
	CurrentTimestampExpr = Expr{SQL: "CURRENT_TIMESTAMP"}
)

// Column is a resolved field descriptor bound to a physical table.
type Column struct {
	Name          string
	Type          *ColumnType
	Nullable      bool
	PrimaryKey    bool
	ForeignKey    string // "table.column"; empty = none
	Default       any
	ServerDefault *Expr
	OnUpdate      any
	Index         bool
	Unique        bool

	hasDefault       bool
	explicitServerDf bool
	table            *Table
}

// Table returns the physical table owning the column.
func (c *Column) Table() *Table { return c.table }

// IsForeignKey reports whether the column references another table.
func (c *Column) IsForeignKey() bool { return c.ForeignKey != "" }

// HasDefault reports whether the column carries a non-empty application
// default or an explicitly declared persisted default.
func (c *Column) HasDefault() bool {
	return (c.hasDefault && !IsEmpty(c.Default)) || c.explicitServerDf
}

// Constraints renders the column flags as a Constraint bitmask.
func (c *Column) Constraints() Constraint {
	cs := ConstraintNone
	if c.PrimaryKey {
		cs |= ConstraintPK
		if !c.IsForeignKey() {
			cs |= ConstraintAutoIncrement
		}
	}
	if !c.Nullable {
		cs |= ConstraintNotNull
	}
	if c.Unique {
		cs |= ConstraintUnique
	}
	if c.Index {
		cs |= ConstraintIndex
	}
	return cs
}

// Validate runs the column's validator, passing values through when it has none.
func (c *Column) Validate(raw any) (any, error) {
	if c.Type == nil || c.Type.Validator == nil {
		return raw, nil
	}
	return c.Type.Validator.Validate(raw)
}

// defaultValue evaluates the application default for an insert.
func (c *Column) defaultValue() (any, bool) {
	if !c.hasDefault || c.Default == nil {
		return nil, false
	}
	if g, ok := c.Default.(*Generator); ok {
		return g.Value(), true
	}
	return c.Default, true
}

func (c *Column) onUpdateValue() (any, bool) {
	if c.OnUpdate == nil {
		return nil, false
	}
	if g, ok := c.OnUpdate.(*Generator); ok {
		return g.Value(), true
	}
	return c.OnUpdate, true
}

// ColumnOption customizes a column declaration.
type ColumnOption func(*Column)

// NotNull makes the column non-nullable. Columns are nullable by default.
func NotNull() ColumnOption { return func(c *Column) { c.Nullable = false } }

// Nullable makes the column nullable.
func Nullable() ColumnOption { return func(c *Column) { c.Nullable = true } }

// PrimaryKey marks the column as the primary key.
func PrimaryKey() ColumnOption {
	return func(c *Column) {
		c.PrimaryKey = true
		c.Nullable = false
	}
}

// ForeignKey references "table.column".
func ForeignKey(ref string) ColumnOption { return func(c *Column) { c.ForeignKey = ref } }

// Default sets the application default; a persisted default is inferred from it.
func Default(v any) ColumnOption {
	return func(c *Column) {
		c.Default = v
		c.hasDefault = true
	}
}

// ServerDefault sets the persisted default expression verbatim.
func ServerDefault(sql string) ColumnOption {
	return func(c *Column) {
		c.ServerDefault = &Expr{SQL: sql}
		c.explicitServerDf = true
	}
}

// OnUpdate sets the value written on every update.
func OnUpdate(v any) ColumnOption { return func(c *Column) { c.OnUpdate = v } }

// Index requests a secondary index.
func Index() ColumnOption { return func(c *Column) { c.Index = true } }

// Unique requests a uniqueness constraint.
func Unique() ColumnOption { return func(c *Column) { c.Unique = true } }

// ColumnDef is a column declaration resolved at registration time.
type ColumnDef struct {
	Name string
	Type *ColumnType
	Opts []ColumnOption
}

// Col declares a column.
func Col(name string, t *ColumnType, opts ...ColumnOption) ColumnDef {
	return ColumnDef{Name: name, Type: t, Opts: opts}
}

func (d ColumnDef) build(typeName string) (*Column, error) {
	if d.Name == "" {
		return nil, configErr(typeName, "column without a name")
	}
	if d.Type == nil {
		return nil, configErr(typeName, "column %s has no type", d.Name)
	}
	if err := d.Type.Err(); err != nil {
		return nil, configErr(typeName, "column %s: %s", d.Name, err.Error())
	}
	c := &Column{Name: d.Name, Type: d.Type, Nullable: true}
	for _, o := range d.Opts {
		o(c)
	}
	if c.explicitServerDf {
		if err := checkExpr(c.ServerDefault.SQL); err != nil {
			return nil, configErr(typeName, "column %s: invalid persisted default %s: %s", c.Name, c.ServerDefault.SQL, err.Error())
		}
		return c, nil
	}
	if c.hasDefault {
		expr, err := InferServerDefault(c.Default, c.Type)
		if err != nil {
			return nil, configErr(typeName, "column %s: %s", c.Name, err.Error())
		}
		c.ServerDefault = &expr
	}
	return c, nil
}

// checkExpr parses sql as a select-list expression.
func checkExpr(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return ErrConfig
	}
	_, err := sqlparser.Parse("select " + sql + " from dual")
	return err
}

// InferServerDefault converts an application default into the expression the
// storage engine enforces.
func InferServerDefault(def any, t *ColumnType) (Expr, error) {
	scale := -1
	if t != nil {
		scale = t.Scale
	}
	switch v := def.(type) {
	case nil:
		return NullExpr, nil
	case bool:
		if v {
			return Expr{SQL: "'1'"}, nil
		}
		return Expr{SQL: "'0'"}, nil
	case *Generator:
		if v == UTCNow {
			return CurrentTimestampExpr, nil
		}
	case string:
		return Expr{SQL: quoteLiteral(v)}, nil
	case decimal.Decimal:
		return numberExpr(v, scale, v.String()), nil
	case float32:
		return floatExpr(float64(v), scale)
	case float64:
		return floatExpr(v, scale)
	default:
		if n, ok, err := toInt64(def); err == nil && ok {
			return numberExpr(decimal.NewFromInt(n), scale, strconv.FormatInt(n, 10)), nil
		}
	}
	return Expr{}, configErr("", "unable to infer a valid persisted default from %v", def)
}

func floatExpr(f float64, scale int) (Expr, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Expr{}, configErr("", "unable to infer a valid persisted default from %v", f)
	}
	return numberExpr(decimal.NewFromFloat(f), scale, strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// numberExpr renders with the column scale when it is positive, else plain.
func numberExpr(d decimal.Decimal, scale int, plain string) Expr {
	if scale > 0 {
		return Expr{SQL: "'" + formatScaled(d, scale) + "'"}
	}
	return Expr{SQL: "'" + plain + "'"}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
