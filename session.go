package ormbase

import (
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FlushHook inspects the pending work before anything is written. An error
// aborts the flush.
type FlushHook func(s *Session, added, dirty, deleted []Record) error

type identityKey struct {
	root string
	id   int64
}

// Session is a single-owner unit of work over a DB: it tracks added, dirty
// and deleted records, runs flush hooks and writes each inheritance chain
// table by table.
type Session struct {
	db  *DB
	reg *Registry
	log func(messages ...any)

	identity *lru.Cache[identityKey, Record]
	hooks    []FlushHook

	added   []Record
	dirty   []Record
	deleted []Record
}

// SessionOption configures NewSession.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	cacheSize int
	log       func(messages ...any)
}

// WithIdentityCacheSize bounds the identity map. The default is 1024.
func WithIdentityCacheSize(n int) SessionOption {
	return func(c *sessionConfig) { c.cacheSize = n }
}

// WithLog sets the log function for informational messages.
func WithLog(fn func(messages ...any)) SessionOption {
	return func(c *sessionConfig) { c.log = fn }
}

// NewSession opens a unit of work and installs the immutability and
// validation flush hooks, in that order.
func NewSession(db *DB, reg *Registry, opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{cacheSize: 1024}
	for _, o := range opts {
		o(&cfg)
	}
	s := &Session{db: db, reg: reg, log: cfg.log}
	cache, err := lru.NewWithEvict[identityKey, Record](cfg.cacheSize, func(k identityKey, _ Record) {
		s.logf("identity map evicted", k.root, k.id)
	})
	if err != nil {
		return nil, err
	}
	s.identity = cache
	s.BeforeFlush(enforceImmutable)
	s.BeforeFlush(validateRecords)
	return s, nil
}

// SetLog sets the log function for informational messages.
func (s *Session) SetLog(fn func(messages ...any)) { s.log = fn }

func (s *Session) logf(messages ...any) {
	if s.log != nil {
		s.log(messages...)
	}
}

// DB returns the underlying database handle.
func (s *Session) DB() *DB { return s.db }

// Registry returns the type registry the session loads records with.
func (s *Session) Registry() *Registry { return s.reg }

// BeforeFlush appends a hook run at the start of every flush.
func (s *Session) BeforeFlush(h FlushHook) { s.hooks = append(s.hooks, h) }

func enforceImmutable(_ *Session, _, dirty, deleted []Record) error {
	for _, set := range [][]Record{dirty, deleted} {
		for _, r := range set {
			if rt := r.Meta().typ; rt.immutable {
				return &ImmutableError{Type: rt.Name}
			}
		}
	}
	return nil
}

func validateRecords(_ *Session, added, dirty, _ []Record) error {
	for _, set := range [][]Record{added, dirty} {
		for _, r := range set {
			if err := r.Meta().Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Add schedules records for insertion. Records already tracked are ignored.
func (s *Session) Add(records ...Record) {
	for _, r := range records {
		b := r.Meta()
		switch b.state {
		case stateTransient:
			b.sess = s
			b.state = statePending
			s.added = append(s.added, r)
		case stateDeleted:
			if b.sess == s {
				s.deleted = remove(s.deleted, r)
				b.state = statePersistent
			}
		}
	}
}

// Delete schedules records for deletion. Pending records are simply dropped.
func (s *Session) Delete(records ...Record) {
	for _, r := range records {
		b := r.Meta()
		switch b.state {
		case statePending:
			s.added = remove(s.added, r)
			b.sess = nil
			b.state = stateTransient
		case statePersistent:
			b.state = stateDeleted
			s.dirty = remove(s.dirty, r)
			s.deleted = append(s.deleted, r)
		}
	}
}

// Added returns the records waiting to be inserted.
func (s *Session) Added() []Record { return append([]Record(nil), s.added...) }

// Dirty returns the persisted records with unflushed changes.
func (s *Session) Dirty() []Record { return append([]Record(nil), s.dirty...) }

// Deleted returns the records waiting to be deleted.
func (s *Session) Deleted() []Record { return append([]Record(nil), s.deleted...) }

// touch is called by Base when a persisted record changes.
func (s *Session) touch(r Record) {
	for _, d := range s.dirty {
		if d == r {
			return
		}
	}
	s.dirty = append(s.dirty, r)
}

// without returns set minus the records of done.
func without(set, done []Record) []Record {
	for _, r := range done {
		set = remove(set, r)
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func remove(set []Record, r Record) []Record {
	for i, x := range set {
		if x == r {
			return append(set[:i:i], set[i+1:]...)
		}
	}
	return set
}

// maxFlushRounds bounds how often hooks may schedule more work in one Flush.
const maxFlushRounds = 8

// Flush runs the flush hooks and writes all pending work in one
// transaction when the executor supports it. Work the hooks schedule, such
// as changes to other persisted records, is flushed in a further round.
// When a round fails its records stay pending and none is marked persisted.
func (s *Session) Flush() error {
	for round := 0; len(s.added)+len(s.dirty)+len(s.deleted) > 0; round++ {
		if round == maxFlushRounds {
			return ErrFlushLoop
		}
		if err := s.flushRound(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) flushRound() error {
	added, dirty, deleted := s.Added(), s.Dirty(), s.Deleted()
	for _, h := range s.hooks {
		if err := h(s, added, dirty, deleted); err != nil {
			return err
		}
	}

	var generated []Record
	write := func(db *DB) error {
		for _, r := range added {
			if err := s.insert(db, r, &generated); err != nil {
				return err
			}
		}
		for _, r := range dirty {
			if err := s.update(db, r); err != nil {
				return err
			}
		}
		for _, r := range deleted {
			if err := s.destroy(db, r); err != nil {
				return err
			}
		}
		return nil
	}

	err := s.db.Tx(write)
	if errors.Is(err, ErrNoTxSupport) {
		err = write(s.db)
	}
	if err != nil {
		for _, r := range generated {
			b := r.Meta()
			delete(b.values, b.typ.pk.Name)
		}
		return err
	}

	for _, r := range added {
		b := r.Meta()
		b.state = statePersistent
		b.commit()
		s.identity.Add(identityKey{b.typ.Root().Name, b.ID()}, r)
	}
	for _, r := range dirty {
		r.Meta().commit()
	}
	for _, r := range deleted {
		b := r.Meta()
		s.identity.Remove(identityKey{b.typ.Root().Name, b.ID()})
		b.sess = nil
	}
	s.added = without(s.added, added)
	s.dirty = without(s.dirty, dirty)
	s.deleted = without(s.deleted, deleted)
	return nil
}

// Commit flushes and then expires the identity map so later reads see
// the stored state.
func (s *Session) Commit() error {
	if err := s.Flush(); err != nil {
		return err
	}
	s.identity.Purge()
	return nil
}

// Rollback discards unflushed work: dirty records get their last flushed
// values back, pending records are detached and deleted ones restored.
func (s *Session) Rollback() {
	for _, r := range s.dirty {
		r.Meta().restore()
	}
	for _, r := range s.added {
		b := r.Meta()
		b.sess = nil
		b.state = stateTransient
	}
	for _, r := range s.deleted {
		b := r.Meta()
		b.restore()
		b.state = statePersistent
	}
	s.added, s.dirty, s.deleted = nil, nil, nil
}

// Close rolls back pending work and forgets every loaded record.
func (s *Session) Close() {
	s.Rollback()
	s.identity.Purge()
}

func (s *Session) insert(db *DB, r Record, generated *[]Record) error {
	b := r.Meta()
	rt := b.typ
	for _, c := range rt.columns {
		if b.values[c.Name] != nil {
			continue
		}
		if v, ok := c.defaultValue(); ok {
			b.values[c.Name] = v
		}
	}

	pk := rt.pk.Name
	key := b.values[pk]
	for i, t := range rt.tables {
		m := &rowModel{table: t}
		for _, c := range rt.columnsIn(t) {
			v := b.values[c.Name]
			if c.PrimaryKey {
				v = key
			}
			if v == nil {
				continue
			}
			m.add(c, v)
		}
		var id int64
		if i == 0 && key == nil {
			m.returning, m.dest = t.PrimaryKey().Name, &id
		}
		if err := db.Create(m); err != nil {
			return err
		}
		if m.returning != "" {
			key = id
			b.values[pk] = id
			*generated = append(*generated, r)
		}
	}
	return nil
}

func (s *Session) update(db *DB, r Record) error {
	b := r.Meta()
	rt := b.typ
	if !b.dirty() {
		return nil
	}
	for _, c := range rt.columns {
		if b.changed[c.Name] {
			continue
		}
		if v, ok := c.onUpdateValue(); ok {
			b.values[c.Name] = v
			b.changed[c.Name] = true
		}
	}
	for _, t := range rt.tables {
		m := &rowModel{table: t}
		for _, c := range rt.columnsIn(t) {
			if b.changed[c.Name] && !c.PrimaryKey {
				m.add(c, b.values[c.Name])
			}
		}
		if len(m.cols) == 0 {
			continue
		}
		if err := db.Update(m, Eq(t.PrimaryKey().Name, b.ID())); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) destroy(db *DB, r Record) error {
	b := r.Meta()
	tables := b.typ.tables
	for i := len(tables) - 1; i >= 0; i-- {
		t := tables[i]
		if err := db.Delete(&rowModel{table: t}, Eq(t.PrimaryKey().Name, b.ID())); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the record of type rt (or a subtype) with the given key.
// Records already loaded by this session are returned from the identity map.
func (s *Session) Get(rt *RecordType, id int64) (Record, error) {
	if r, ok := s.identity.Get(identityKey{rt.Root().Name, id}); ok {
		b := r.Meta()
		if b.state == stateDeleted || !b.typ.IsSubtypeOf(rt) {
			return nil, ErrNotFound
		}
		return r, nil
	}
	return s.load(rt, id)
}

func (s *Session) load(rt *RecordType, id int64) (Record, error) {
	root := rt.Root()
	rootRow := readModel(root.table, root.table.columns)
	if err := s.db.Query(rootRow).Where(Eq(root.pk.Name, id)).ReadOne(); err != nil {
		return nil, err
	}
	raw := rootRow.scanned()

	actual := root
	if d := root.Discriminator(); d != nil {
		if name, ok := raw[d.Name].(string); ok {
			if t, ok := root.hierarchy.Type(name); ok {
				actual = t
			}
		}
	}
	if !actual.IsSubtypeOf(rt) {
		return nil, ErrNotFound
	}

	for _, t := range actual.tables[1:] {
		row := readModel(t, actual.columnsIn(t))
		if err := s.db.Query(row).Where(Eq(t.PrimaryKey().Name, id)).ReadOne(); err != nil {
			return nil, err
		}
		for k, v := range row.scanned() {
			raw[k] = v
		}
	}

	r := actual.New()
	b := r.Meta()
	values := make(map[string]any, len(raw))
	for _, c := range actual.columns {
		v, ok := raw[c.Name]
		if !ok {
			continue
		}
		if norm, err := c.Validate(v); err == nil {
			v = norm
		} else {
			s.logf("load", actual.Name, c.Name, err.Error())
		}
		values[c.Name] = v
	}
	b.load(values)
	b.sess = s
	b.state = statePersistent
	s.identity.Add(identityKey{root.Name, b.ID()}, r)
	return r, nil
}

// QueryOption adjusts the underlying query of a lookup.
type QueryOption func(*QB)

// WithOrder sorts by column; dir is "ASC" or "DESC".
func WithOrder(column, dir string) QueryOption {
	return func(qb *QB) { qb.OrderBy(column, dir) }
}

// WithLimit caps the number of rows read.
func WithLimit(n int) QueryOption {
	return func(qb *QB) { qb.Limit(n) }
}

// WithOffset skips the first n rows.
func WithOffset(n int) QueryOption {
	return func(qb *QB) { qb.Offset(n) }
}

// RecordQuery selects records of one type by column conditions.
type RecordQuery struct {
	s     *Session
	rt    *RecordType
	conds []Condition
	opts  []QueryOption
}

// Query starts a query over rt and its subtypes.
func (s *Session) Query(rt *RecordType) *RecordQuery {
	return &RecordQuery{s: s, rt: rt}
}

// Where adds conditions. All fields must live in one table of the type.
func (q *RecordQuery) Where(conds ...Condition) *RecordQuery {
	q.conds = append(q.conds, conds...)
	return q
}

// Options applies query options such as ordering and paging.
func (q *RecordQuery) Options(opts ...QueryOption) *RecordQuery {
	q.opts = append(q.opts, opts...)
	return q
}

// All returns every matching record.
func (q *RecordQuery) All() ([]Record, error) {
	return q.fetch(nil)
}

// One returns the single matching record: ErrNotFound when nothing
// matches and ErrMultipleResults when more than one does.
func (q *RecordQuery) One() (Record, error) {
	limit := 2
	rs, err := q.fetch(&limit)
	if err != nil {
		return nil, err
	}
	switch len(rs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return rs[0], nil
	}
	return nil, ErrMultipleResults
}

// First returns the first matching record or ErrNotFound.
func (q *RecordQuery) First() (Record, error) {
	limit := 1
	rs, err := q.fetch(&limit)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, ErrNotFound
	}
	return rs[0], nil
}

// Exists reports whether any record matches without loading it.
func (q *RecordQuery) Exists() (bool, error) {
	qb, _, err := q.build()
	if err != nil {
		return false, err
	}
	return qb.Exists()
}

func (q *RecordQuery) build() (*QB, *rowModel, error) {
	t, err := q.table()
	if err != nil {
		return nil, nil, err
	}
	m := readModel(t, []*Column{t.PrimaryKey()})
	qb := q.s.db.Query(m).Where(q.conds...)
	if d := q.rt.Discriminator(); d != nil && t == q.rt.Root().table && q.rt != q.rt.Root() {
		qb.Where(In(d.Name, q.rt.identities()...))
	}
	for _, o := range q.opts {
		o(qb)
	}
	return qb, m, nil
}

// table picks the first table of the chain holding every condition field.
func (q *RecordQuery) table() (*Table, error) {
	var missing []string
	for _, t := range q.rt.tables {
		missing = missing[:0]
		for _, c := range q.conds {
			if col := t.Column(c.Field()); col == nil || q.rt.byName[c.Field()] != col {
				missing = append(missing, c.Field())
			}
		}
		if len(missing) == 0 {
			return t, nil
		}
	}
	return nil, &UnknownFieldError{Type: q.rt.Name, Field: strings.Join(missing, ",")}
}

func (q *RecordQuery) fetch(limit *int) ([]Record, error) {
	qb, m, err := q.build()
	if err != nil {
		return nil, err
	}
	if limit != nil {
		qb.Limit(*limit)
	}
	var ids []int64
	err = qb.ReadAll(func() Model { return m.fresh() }, func(row Model) {
		if id, ok, _ := toInt64(row.(*rowModel).scanned()[m.cols[0].Name]); ok {
			ids = append(ids, id)
		}
	})
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		r, err := q.s.Get(q.rt, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
