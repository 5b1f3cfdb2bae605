package ormbase

// Plan describes how the Executor should run the operation.
type Plan struct {
	Mode  Action
	Query string
	Args  []any
}

// Compiler converts queries into engine instructions.
type Compiler interface {
	Compile(q Query, m Model) (Plan, error)
}
