package ormbase_test

import (
	"github.com/tinywasm/ormbase"
)

// MockCompiler captures the query and returns a predefined plan.
type MockCompiler struct {
	LastQuery  ormbase.Query
	LastModel  ormbase.Model
	ReturnPlan ormbase.Plan
	ReturnErr  error
}

func (m *MockCompiler) Compile(q ormbase.Query, model ormbase.Model) (ormbase.Plan, error) {
	m.LastQuery = q
	m.LastModel = model
	if m.ReturnPlan.Query == "" {
		m.ReturnPlan.Query = "MOCK_QUERY"
	}
	return m.ReturnPlan, m.ReturnErr
}

// MockExecutor captures execution calls.
type MockExecutor struct {
	ExecutedQueries []string
	ExecutedArgs    [][]any
	ReturnExecErr   error
	ReturnQueryRow  ormbase.Scanner
	ReturnQueryRows ormbase.Rows
	ReturnQueryErr  error
	ReturnCloseErr  error
}

func (m *MockExecutor) Exec(query string, args ...any) error {
	m.ExecutedQueries = append(m.ExecutedQueries, query)
	m.ExecutedArgs = append(m.ExecutedArgs, args)
	return m.ReturnExecErr
}

func (m *MockExecutor) QueryRow(query string, args ...any) ormbase.Scanner {
	m.ExecutedQueries = append(m.ExecutedQueries, query)
	m.ExecutedArgs = append(m.ExecutedArgs, args)
	if m.ReturnQueryRow == nil {
		return &MockScanner{}
	}
	return m.ReturnQueryRow
}

func (m *MockExecutor) Query(query string, args ...any) (ormbase.Rows, error) {
	m.ExecutedQueries = append(m.ExecutedQueries, query)
	m.ExecutedArgs = append(m.ExecutedArgs, args)
	if m.ReturnQueryRows == nil {
		return &MockRows{}, m.ReturnQueryErr
	}
	return m.ReturnQueryRows, m.ReturnQueryErr
}

func (m *MockExecutor) Close() error {
	return m.ReturnCloseErr
}

// MockScanner fills destinations from Values in order.
type MockScanner struct {
	Values  []any
	ScanErr error
}

func (m *MockScanner) Scan(dest ...any) error {
	if m.ScanErr != nil {
		return m.ScanErr
	}
	for i, v := range m.Values {
		if i >= len(dest) {
			break
		}
		switch d := dest[i].(type) {
		case *int64:
			*d, _ = v.(int64)
		case *bool:
			*d, _ = v.(bool)
		case *any:
			*d = v
		}
	}
	return nil
}

type MockRows struct {
	Count    int
	Current  int
	ScanErr  error
	CloseErr error
	ErrVal   error
}

func (m *MockRows) Next() bool {
	if m.Current < m.Count {
		m.Current++
		return true
	}
	return false
}

func (m *MockRows) Scan(dest ...any) error {
	return m.ScanErr
}

func (m *MockRows) Close() error {
	return m.CloseErr
}

func (m *MockRows) Err() error {
	return m.ErrVal
}

// MockModel is a mock implementation of the Model interface.
type MockModel struct {
	Table  string
	Fields []ormbase.Field
	Vals   []any
}

func (m MockModel) TableName() string       { return m.Table }
func (m MockModel) Schema() []ormbase.Field { return m.Fields }
func (m MockModel) Values() []any           { return m.Vals }
func (m MockModel) Pointers() []any         { return nil }

// ReturningModel reports a generated key column.
type ReturningModel struct {
	MockModel
	ID int64
}

func (m *ReturningModel) Returning() (string, any) { return "id", &m.ID }

func fields(names ...string) []ormbase.Field {
	fs := make([]ormbase.Field, len(names))
	for i, n := range names {
		fs[i] = ormbase.Field{Name: n}
	}
	return fs
}

// MockTxExecutor is a MockExecutor that can begin transactions.
type MockTxExecutor struct {
	MockExecutor
	Bound      *MockTxBoundExecutor
	BeginTxErr error
}

func (m *MockTxExecutor) BeginTx() (ormbase.TxBoundExecutor, error) {
	if m.BeginTxErr != nil {
		return nil, m.BeginTxErr
	}
	if m.Bound == nil {
		m.Bound = &MockTxBoundExecutor{}
	}
	return m.Bound, nil
}

type MockTxBoundExecutor struct {
	MockExecutor
	CommitCalled   bool
	RollbackCalled bool
	CommitErr      error
	RollbackErr    error
}

func (m *MockTxBoundExecutor) Commit() error {
	m.CommitCalled = true
	return m.CommitErr
}

func (m *MockTxBoundExecutor) Rollback() error {
	m.RollbackCalled = true
	return m.RollbackErr
}
