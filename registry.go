package ormbase

import (
	"sort"
	"sync"
)

// Mode selects how a subtype is stored relative to its parent.
type Mode int

const (
	// Inherit takes the parent's mode. On a root it means "not polymorphic".
	Inherit Mode = iota
	// Single stores subtype rows in the parent's table.
	Single
	// Join stores subtype rows in their own table keyed by the parent's key.
	Join
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Join:
		return "join"
	}
	return "inherit"
}

// DiscriminatorColumn names the polymorphic dispatch column.
const DiscriminatorColumn = "row_type"

// Inheritable is something a TypeDef can extend: a registered *RecordType
// (which brings a table) or a Mixin (which brings only columns).
type Inheritable interface {
	inheritable()
}

// Mixin contributes columns to every type that extends it.
type Mixin struct {
	Name    string
	Columns []ColumnDef
}

func (Mixin) inheritable() {}

// Timestamp adds created_at and modified_at, both maintained in UTC.
var Timestamp = Mixin{
	Name: "Timestamp",
	Columns: []ColumnDef{
		Col("created_at", DateTime(), NotNull(), Default(UTCNow)),
		Col("modified_at", DateTime(), NotNull(), Default(UTCNow), OnUpdate(UTCNow)),
	},
}

// Property is a derived attribute. When a property shares a column's name,
// Base.Set routes the validated value through Set instead of storing it.
type Property struct {
	Get func(r Record) any
	Set func(r Record, value any) error
}

// TypeDef declares a record type.
type TypeDef struct {
	Name        string
	Extends     []Inheritable
	Polymorphic Mode
	Immutable   bool
	ReadOnly    []string
	Columns     []ColumnDef
	Properties  map[string]Property
	New         func() Record
}

// Table is one physical table.
type Table struct {
	Name    string
	Parent  *Table
	columns []*Column
	byName  map[string]*Column
}

func newTable(name string, parent *Table) *Table {
	return &Table{Name: name, Parent: parent, byName: make(map[string]*Column)}
}

func (t *Table) add(c *Column) bool {
	if _, dup := t.byName[c.Name]; dup {
		return false
	}
	c.table = t
	t.columns = append(t.columns, c)
	t.byName[c.Name] = c
	return true
}

// Columns returns the table's columns in declaration order.
func (t *Table) Columns() []*Column { return append([]*Column(nil), t.columns...) }

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column { return t.byName[name] }

// PrimaryKey returns the table's key column.
func (t *Table) PrimaryKey() *Column {
	for _, c := range t.columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// Hierarchy is the per-root descriptor shared by every type of one
// inheritance tree.
type Hierarchy struct {
	Root          *RecordType
	Discriminator *Column
	types         map[string]*RecordType
}

// Type resolves a discriminator value.
func (h *Hierarchy) Type(identity string) (*RecordType, bool) {
	rt, ok := h.types[identity]
	return rt, ok
}

// RecordType is the resolved, immutable descriptor of a registered type.
type RecordType struct {
	Name string

	mode      Mode
	parent    *RecordType
	children  []*RecordType
	hierarchy *Hierarchy
	table     *Table
	tables    []*Table
	columns   []*Column
	byName    map[string]*Column
	pk        *Column
	immutable bool
	readOnly  map[string]bool
	props     map[string]Property
	newFn     func() Record
}

func (*RecordType) inheritable() {}

func (rt *RecordType) Mode() Mode { return rt.mode }
func (rt *RecordType) Parent() *RecordType { return rt.parent }
func (rt *RecordType) Root() *RecordType { return rt.hierarchy.Root }
func (rt *RecordType) Hierarchy() *Hierarchy { return rt.hierarchy }
func (rt *RecordType) Table() *Table { return rt.table }
func (rt *RecordType) Tables() []*Table { return append([]*Table(nil), rt.tables...) }
func (rt *RecordType) PrimaryKey() *Column { return rt.pk }
func (rt *RecordType) Immutable() bool { return rt.immutable }
func (rt *RecordType) Column(name string) *Column { return rt.byName[name] }

// TableName is the type's own physical table.
func (rt *RecordType) TableName() string { return rt.table.Name }

// Columns returns every field descriptor of the type, inherited ones first.
func (rt *RecordType) Columns() []*Column { return append([]*Column(nil), rt.columns...) }

// Identity is the discriminator value written for rows of this type.
func (rt *RecordType) Identity() string { return rt.Name }

// Discriminator returns the hierarchy's dispatch column, nil when the
// hierarchy is not polymorphic.
func (rt *RecordType) Discriminator() *Column { return rt.hierarchy.Discriminator }

// IsReadOnly reports whether field rejects ordinary writes.
func (rt *RecordType) IsReadOnly(field string) bool { return rt.readOnly[field] }

// IsSubtypeOf reports whether rt is other or descends from it.
func (rt *RecordType) IsSubtypeOf(other *RecordType) bool {
	for t := rt; t != nil; t = t.parent {
		if t == other {
			return true
		}
	}
	return false
}

// identities lists rt and all of its descendants.
func (rt *RecordType) identities() []any {
	ids := []any{rt.Name}
	for _, c := range rt.children {
		ids = append(ids, c.identities()...)
	}
	return ids
}

// New returns a fresh, unpersisted instance.
func (rt *RecordType) New() Record {
	r := rt.newFn()
	r.Meta().init(rt, r)
	return r
}

// columnsIn returns t's key plus rt's columns stored in t, in t's order.
func (rt *RecordType) columnsIn(t *Table) []*Column {
	var cols []*Column
	for _, c := range t.columns {
		if rt.byName[c.Name] == c || c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols
}

// Registry maps type names to descriptors and constructors.
type Registry struct {
	mu          sync.RWMutex
	types       map[string]*RecordType
	order       []*RecordType
	hierarchies map[string]*Hierarchy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:       make(map[string]*RecordType),
		hierarchies: make(map[string]*Hierarchy),
	}
}

// MustRegister is like Register but panics on configuration errors.
func (r *Registry) MustRegister(def TypeDef) *RecordType {
	rt, err := r.Register(def)
	if err != nil {
		panic(err)
	}
	return rt
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.types[name]
	return rt, ok
}

// New constructs an empty instance of the named type.
func (r *Registry) New(name string) (Record, error) {
	rt, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownTypeError{Name: name}
	}
	return rt.New(), nil
}

// Types returns every registered type in registration order.
func (r *Registry) Types() []*RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*RecordType(nil), r.order...)
}

// Hierarchy returns the descriptor of the tree rooted at root.
func (r *Registry) Hierarchy(root string) (*Hierarchy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hierarchies[root]
	return h, ok
}

// Tables returns every physical table, sorted by name.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Table]bool)
	var tables []*Table
	for _, rt := range r.order {
		for _, t := range rt.tables {
			if !seen[t] {
				seen[t] = true
				tables = append(tables, t)
			}
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// Register resolves def: table name, inheritance linkage, discriminator and
// primary key. All configuration mistakes surface here.
func (r *Registry) Register(def TypeDef) (*RecordType, error) {
	if def.Name == "" {
		return nil, configErr("", "type without a name")
	}
	if def.New == nil {
		return nil, configErr(def.Name, "no constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.types[def.Name]; dup {
		return nil, configErr(def.Name, "already registered")
	}

	var parents []*RecordType
	var mixins []Mixin
	for _, base := range def.Extends {
		switch b := base.(type) {
		case *RecordType:
			if b == nil || r.types[b.Name] != b {
				return nil, configErr(def.Name, "extends a type from another registry")
			}
			parents = append(parents, b)
		case Mixin:
			mixins = append(mixins, b)
		}
	}
	if len(parents) > 1 {
		return nil, configErr(def.Name, "can only inherit from one base type with a defined table")
	}

	rt := &RecordType{
		Name:      def.Name,
		mode:      def.Polymorphic,
		byName:    make(map[string]*Column),
		readOnly:  make(map[string]bool),
		props:     make(map[string]Property),
		newFn:     def.New,
		immutable: def.Immutable,
	}

	var own []*Column
	for _, md := range mixins {
		for _, cd := range md.Columns {
			c, err := cd.build(def.Name)
			if err != nil {
				return nil, err
			}
			own = append(own, c)
		}
	}
	for _, cd := range def.Columns {
		c, err := cd.build(def.Name)
		if err != nil {
			return nil, err
		}
		own = append(own, c)
	}

	var parent *RecordType
	if len(parents) == 1 {
		parent = parents[0]
	}
	if err := checkDef(def, parent, own); err != nil {
		return nil, err
	}

	var err error
	if parent == nil {
		err = r.resolveRoot(rt, own)
	} else {
		err = r.resolveSubtype(rt, parent, own)
	}
	if err != nil {
		return nil, err
	}

	for name, p := range def.Properties {
		rt.props[name] = p
	}
	for _, f := range def.ReadOnly {
		rt.readOnly[f] = true
	}

	rt.hierarchy.types[rt.Name] = rt
	r.types[rt.Name] = rt
	r.order = append(r.order, rt)
	return rt, nil
}

// checkDef rejects every configuration mistake of def before the registry
// or the parent's tables change, so a failed Register leaves no trace.
func checkDef(def TypeDef, parent *RecordType, own []*Column) error {
	names := map[string]bool{DiscriminatorColumn: true}
	var shared *Table
	hasPK := false
	for _, c := range own {
		if !c.PrimaryKey {
			continue
		}
		if parent != nil {
			return configErr(def.Name, "a subtype cannot declare its own primary key")
		}
		if hasPK {
			return configErr(def.Name, "more than one primary key")
		}
		hasPK = true
	}

	props := make(map[string]Property)
	if parent != nil {
		mode := def.Polymorphic
		if mode == Inherit {
			mode = parent.mode
		}
		switch mode {
		case Inherit:
			return configErr(def.Name, "inherits a mapped table: specify Polymorphic: Single or Polymorphic: Join on the base type")
		case Single:
			shared = parent.table
		case Join:
		default:
			return configErr(def.Name, "unknown polymorphic mode %d", int(mode))
		}
		for name := range parent.byName {
			names[name] = true
		}
		for name, p := range parent.props {
			props[name] = p
		}
	} else if !hasPK {
		names["id"] = true
	}

	for _, c := range own {
		switch {
		case c.Name == DiscriminatorColumn:
			return configErr(def.Name, "column %s is reserved", c.Name)
		case names[c.Name]:
			return configErr(def.Name, "duplicate column %s", c.Name)
		case shared != nil && shared.byName[c.Name] != nil:
			return configErr(def.Name, "column %s already exists in table %s", c.Name, shared.Name)
		}
		names[c.Name] = true
	}

	for name, p := range def.Properties {
		props[name] = p
	}
	for _, f := range def.ReadOnly {
		if p := props[f]; !names[f] && p.Get == nil && p.Set == nil {
			return configErr(def.Name, "read-only field %s is not declared", f)
		}
	}
	return nil
}

func (r *Registry) resolveRoot(rt *RecordType, own []*Column) error {
	rt.table = newTable(ToUnderscore(rt.Name), nil)
	rt.tables = []*Table{rt.table}
	rt.hierarchy = &Hierarchy{Root: rt, types: make(map[string]*RecordType)}
	r.hierarchies[rt.Name] = rt.hierarchy

	var pk *Column
	for _, c := range own {
		if c.PrimaryKey {
			pk = c
		}
	}
	cols := own
	if pk == nil {
		pk, _ = Col("id", ObjectID(), PrimaryKey()).build(rt.Name)
		cols = append([]*Column{pk}, own...)
	}
	rt.pk = pk
	for _, c := range cols {
		if err := rt.addColumn(c, true); err != nil {
			return err
		}
	}
	if rt.mode != Inherit {
		rt.ensureDiscriminator()
	}
	return nil
}

func (r *Registry) resolveSubtype(rt *RecordType, parent *RecordType, own []*Column) error {
	if rt.mode == Inherit {
		rt.mode = parent.mode
	}
	rt.parent = parent
	rt.hierarchy = parent.hierarchy
	rt.immutable = rt.immutable || parent.immutable
	for f := range parent.readOnly {
		rt.readOnly[f] = true
	}
	for name, p := range parent.props {
		rt.props[name] = p
	}
	switch rt.mode {
	case Single:
		// Single implies extending the parent's table; no new table is created.
		rt.table = parent.table
		rt.tables = parent.tables
		rt.pk = parent.pk
		for _, c := range parent.columns {
			rt.inherit(c)
		}
		for _, c := range own {
			if err := rt.addColumn(c, true); err != nil {
				return err
			}
		}
	case Join:
		rt.table = newTable(ToUnderscore(parent.Name+rt.Name), parent.table)
		rt.tables = append(append([]*Table(nil), parent.tables...), rt.table)
		ref := parent.table.Name + "." + parent.pk.Name
		pk, err := Col(parent.pk.Name, ObjectID(), ForeignKey(ref), PrimaryKey()).build(rt.Name)
		if err != nil {
			return err
		}
		rt.pk = pk
		for _, c := range parent.columns {
			if c.Name != pk.Name {
				rt.inherit(c)
			}
		}
		if err := rt.addColumn(pk, true); err != nil {
			return err
		}
		for _, c := range own {
			if err := rt.addColumn(c, true); err != nil {
				return err
			}
		}
	default:
		return configErr(rt.Name, "unknown polymorphic mode %d", int(rt.mode))
	}
	if rt.hierarchy.Discriminator == nil {
		rt.hierarchy.Root.ensureDiscriminator()
		rt.inherit(rt.hierarchy.Discriminator)
	}
	parent.children = append(parent.children, rt)
	return nil
}

func (rt *RecordType) inherit(c *Column) {
	rt.columns = append(rt.columns, c)
	rt.byName[c.Name] = c
}

// addColumn registers c on rt and, when store is set, on rt's own table.
func (rt *RecordType) addColumn(c *Column, store bool) error {
	if _, dup := rt.byName[c.Name]; dup {
		return configErr(rt.Name, "duplicate column %s", c.Name)
	}
	if store && !rt.table.add(c) {
		return configErr(rt.Name, "column %s already exists in table %s", c.Name, rt.table.Name)
	}
	rt.inherit(c)
	return nil
}

// ensureDiscriminator creates the hierarchy's row_type column once, on the
// root table, and exposes it on every type already in the hierarchy.
func (rt *RecordType) ensureDiscriminator() {
	root := rt
	h := root.hierarchy
	if h.Discriminator != nil {
		return
	}
	d, _ := Col(DiscriminatorColumn, Unicode(50), Index()).build(root.Name)
	root.table.add(d)
	h.Discriminator = d
	root.inherit(d)
	for _, t := range h.types {
		if t != root && t.byName[d.Name] == nil {
			t.inherit(d)
		}
	}
}
