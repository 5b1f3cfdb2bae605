package ormbase

import (
	"database/sql"
	"errors"
)

// QB represents a query builder.
// Consumers hold a *QB reference in variables for incremental building.
type QB struct {
	db      *DB
	model   Model
	conds   []Condition
	orderBy []Order
	groupBy []string
	limit   int
	offset  int
}

// Where adds conditions to the query.
func (qb *QB) Where(conds ...Condition) *QB {
	qb.conds = append(qb.conds, conds...)
	return qb
}

// Limit sets the limit for the query.
func (qb *QB) Limit(limit int) *QB {
	qb.limit = limit
	return qb
}

// Offset sets the offset for the query.
func (qb *QB) Offset(offset int) *QB {
	qb.offset = offset
	return qb
}

// OrderBy adds an order clause to the query.
func (qb *QB) OrderBy(column, dir string) *QB {
	qb.orderBy = append(qb.orderBy, Order{column: column, dir: dir})
	return qb
}

// GroupBy adds a group by clause to the query.
func (qb *QB) GroupBy(columns ...string) *QB {
	qb.groupBy = append(qb.groupBy, columns...)
	return qb
}

func (qb *QB) build(action Action) Query {
	return Query{
		Action:     action,
		Table:      qb.model.TableName(),
		Columns:    Columns(qb.model),
		Conditions: qb.conds,
		OrderBy:    qb.orderBy,
		GroupBy:    qb.groupBy,
		Limit:      qb.limit,
		Offset:     qb.offset,
	}
}

// ReadOne executes the query and scans the first result into the model.
// A missing row is reported as ErrNotFound.
func (qb *QB) ReadOne() error {
	if err := validate(ActionReadOne, qb.model); err != nil {
		return err
	}
	q := qb.build(ActionReadOne)
	q.Limit = 1 // Force limit 1
	plan, err := qb.db.compiler.Compile(q, qb.model)
	if err != nil {
		return err
	}

	row := qb.db.exec.QueryRow(plan.Query, plan.Args...)
	if err := row.Scan(qb.model.Pointers()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ReadAll executes the query and returns all results.
func (qb *QB) ReadAll(factory func() Model, each func(Model)) error {
	if err := validate(ActionReadAll, qb.model); err != nil {
		return err
	}
	plan, err := qb.db.compiler.Compile(qb.build(ActionReadAll), qb.model)
	if err != nil {
		return err
	}

	rows, err := qb.db.exec.Query(plan.Query, plan.Args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		m := factory()
		if err := rows.Scan(m.Pointers()...); err != nil {
			return err
		}
		each(m)
	}
	return rows.Err()
}

// Exists reports whether any row matches, without materializing it.
func (qb *QB) Exists() (bool, error) {
	if err := validate(ActionExists, qb.model); err != nil {
		return false, err
	}
	q := qb.build(ActionExists)
	q.Columns = nil
	q.Limit = 1
	plan, err := qb.db.compiler.Compile(q, qb.model)
	if err != nil {
		return false, err
	}
	var found bool
	if err := qb.db.exec.QueryRow(plan.Query, plan.Args...).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return found, nil
}
