package ormbase

// DB represents a database connection.
// Consumers instantiate it via New().
type DB struct {
	exec     Executor
	compiler Compiler
}

// New creates a new DB instance.
func New(exec Executor, compiler Compiler) *DB {
	return &DB{
		exec:     exec,
		compiler: compiler,
	}
}

// Create inserts a row. When m implements Returner and reports a column,
// the generated key is scanned into its destination.
func (db *DB) Create(m Model) error {
	if err := validate(ActionCreate, m); err != nil {
		return err
	}
	q := Query{
		Action:  ActionCreate,
		Table:   m.TableName(),
		Columns: Columns(m),
		Values:  m.Values(),
	}
	var dest any
	if r, ok := m.(Returner); ok {
		q.Returning, dest = r.Returning()
	}
	plan, err := db.compiler.Compile(q, m)
	if err != nil {
		return err
	}
	if q.Returning != "" {
		return db.exec.QueryRow(plan.Query, plan.Args...).Scan(dest)
	}
	return db.exec.Exec(plan.Query, plan.Args...)
}

// Update updates rows in the database.
func (db *DB) Update(m Model, conds ...Condition) error {
	if err := validate(ActionUpdate, m); err != nil {
		return err
	}
	q := Query{
		Action:     ActionUpdate,
		Table:      m.TableName(),
		Columns:    Columns(m),
		Values:     m.Values(),
		Conditions: conds,
	}
	plan, err := db.compiler.Compile(q, m)
	if err != nil {
		return err
	}
	return db.exec.Exec(plan.Query, plan.Args...)
}

// Delete deletes rows from the database.
func (db *DB) Delete(m Model, conds ...Condition) error {
	if err := validate(ActionDelete, m); err != nil {
		return err
	}
	q := Query{
		Action:     ActionDelete,
		Table:      m.TableName(),
		Conditions: conds,
	}
	plan, err := db.compiler.Compile(q, m)
	if err != nil {
		return err
	}
	return db.exec.Exec(plan.Query, plan.Args...)
}

// Query creates a new QB instance.
func (db *DB) Query(m Model) *QB {
	return &QB{
		db:    db,
		model: m,
	}
}

// Close closes the underlying executor.
func (db *DB) Close() error {
	return db.exec.Close()
}

// RawExecutor returns the underlying executor instance.
func (db *DB) RawExecutor() Executor {
	return db.exec
}

func validate(action Action, m Model) error {
	if m.TableName() == "" {
		return ErrEmptyTable
	}
	if action == ActionCreate || action == ActionUpdate {
		if len(m.Schema()) != len(m.Values()) {
			return &FieldError{Table: m.TableName(), Message: "columns and values length mismatch"}
		}
	}
	return nil
}
