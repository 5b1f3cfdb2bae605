package ormbase

import "errors"

// TxBoundExecutor is an executor bound to an open transaction.
type TxBoundExecutor interface {
	Executor
	Commit() error
	Rollback() error
}

// TxExecutor is an executor able to open transactions. Engines without it
// make Tx fail with ErrNoTxSupport and Session.Flush writes directly.
type TxExecutor interface {
	Executor
	BeginTx() (TxBoundExecutor, error)
}

// Tx runs fn against a DB bound to a new transaction. The transaction is
// committed when fn returns nil and rolled back when it fails or panics.
func (db *DB) Tx(fn func(tx *DB) error) (err error) {
	txExec, ok := db.exec.(TxExecutor)
	if !ok {
		return ErrNoTxSupport
	}

	bound, err := txExec.BeginTx()
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if !done {
			bound.Rollback()
		}
	}()

	if err := fn(&DB{exec: bound, compiler: db.compiler}); err != nil {
		done = true
		if rbErr := bound.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	done = true
	return bound.Commit()
}
