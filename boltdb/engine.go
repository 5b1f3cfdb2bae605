// Package boltdb stores ormbase tables in a bbolt file: one bucket per
// table, rows as JSON keyed by their 8-byte big-endian primary key.
package boltdb

import (
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/tinywasm/ormbase"
)

// Engine is an ormbase Executor, TxExecutor and Compiler over one bbolt file.
type Engine struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Engine, error) {
	db, err := bolt.Open(path, os.FileMode(0o600), bolt.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db}, nil
}

// New opens path and wraps it in an ormbase.DB using the engine as both
// executor and compiler.
func New(path string) (*ormbase.DB, error) {
	e, err := Open(path)
	if err != nil {
		return nil, err
	}
	return ormbase.New(e, e), nil
}

// Path returns the database file path.
func (e *Engine) Path() string { return e.db.Path() }

func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) Exec(query string, args ...any) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		_, err := run(tx, query, args)
		return err
	})
}

func (e *Engine) QueryRow(query string, args ...any) ormbase.Scanner {
	var res [][]any
	err := e.view(query, func(tx *bolt.Tx) (err error) {
		res, err = run(tx, query, args)
		return err
	})
	return &row{rows: res, err: err}
}

func (e *Engine) Query(query string, args ...any) (ormbase.Rows, error) {
	var res [][]any
	err := e.view(query, func(tx *bolt.Tx) (err error) {
		res, err = run(tx, query, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &rows{rows: res, pos: -1}, nil
}

// view runs fn read-only unless the command writes.
func (e *Engine) view(query string, fn func(tx *bolt.Tx) error) error {
	cmd, err := decode(query)
	if err != nil {
		return err
	}
	if cmd.writes() {
		return e.db.Update(fn)
	}
	return e.db.View(fn)
}

// BeginTx starts a writable transaction. bbolt allows one writer at a time.
func (e *Engine) BeginTx() (ormbase.TxBoundExecutor, error) {
	tx, err := e.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &txExecutor{tx: tx}, nil
}

type txExecutor struct {
	tx *bolt.Tx
}

func (t *txExecutor) Exec(query string, args ...any) error {
	_, err := run(t.tx, query, args)
	return err
}

func (t *txExecutor) QueryRow(query string, args ...any) ormbase.Scanner {
	res, err := run(t.tx, query, args)
	return &row{rows: res, err: err}
}

func (t *txExecutor) Query(query string, args ...any) (ormbase.Rows, error) {
	res, err := run(t.tx, query, args)
	if err != nil {
		return nil, err
	}
	return &rows{rows: res, pos: -1}, nil
}

func (t *txExecutor) Close() error    { return nil }
func (t *txExecutor) Commit() error   { return t.tx.Commit() }
func (t *txExecutor) Rollback() error { return t.tx.Rollback() }
