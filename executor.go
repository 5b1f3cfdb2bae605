package ormbase

// Executor represents the database connection abstraction.
// It must remain compatible with sql.DB, sql.Tx, mocks, and embedded engines.
// QueryRow scanners report a missing row as ErrNotFound or sql.ErrNoRows.
type Executor interface {
	Exec(query string, args ...any) error
	QueryRow(query string, args ...any) Scanner
	Query(query string, args ...any) (Rows, error)
	Close() error
}

// Scanner represents a single row scanner.
type Scanner interface {
	Scan(dest ...any) error
}

// Rows represents an iterator over query results.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}
