package boltdb

import (
	"encoding/json"
	"errors"

	"github.com/tinywasm/ormbase"
)

// ErrGroupBy is returned for queries with a GROUP BY clause.
var ErrGroupBy = errors.New("boltdb: group by is not supported")

// command is the compiled form of an ormbase.Query. Values travel in
// Plan.Args: the column values first, then one per condition.
type command struct {
	Action    ormbase.Action `json:"action"`
	Table     string         `json:"table"`
	Key       string         `json:"key,omitempty"`
	Columns   []string       `json:"columns,omitempty"`
	Conds     []condition    `json:"conds,omitempty"`
	Order     []order        `json:"order,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
	Returning string         `json:"returning,omitempty"`
}

type condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Logic string `json:"logic"`
}

type order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

func (c *command) writes() bool {
	switch c.Action {
	case ormbase.ActionCreate, ormbase.ActionUpdate, ormbase.ActionDelete:
		return true
	}
	return false
}

// Compile implements ormbase.Compiler.
func (e *Engine) Compile(q ormbase.Query, m ormbase.Model) (ormbase.Plan, error) {
	if len(q.GroupBy) > 0 {
		return ormbase.Plan{}, ErrGroupBy
	}
	cmd := command{
		Action:    q.Action,
		Table:     q.Table,
		Columns:   q.Columns,
		Limit:     q.Limit,
		Offset:    q.Offset,
		Returning: q.Returning,
		Key:       keyColumn(m),
	}
	if q.Action == ormbase.ActionCreate && q.Returning != "" {
		cmd.Key = q.Returning
	}
	args := append([]any(nil), q.Values...)
	for _, c := range q.Conditions {
		cmd.Conds = append(cmd.Conds, condition{Field: c.Field(), Op: c.Operator(), Logic: c.Logic()})
		args = append(args, c.Value())
	}
	for _, o := range q.OrderBy {
		cmd.Order = append(cmd.Order, order{Column: o.Column(), Desc: isDesc(o.Dir())})
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return ormbase.Plan{}, err
	}
	return ormbase.Plan{Mode: q.Action, Query: string(raw), Args: args}, nil
}

func keyColumn(m ormbase.Model) string {
	for _, f := range m.Schema() {
		if f.Constraints.Has(ormbase.ConstraintPK) {
			return f.Name
		}
	}
	return "id"
}

func isDesc(dir string) bool {
	return dir == "DESC" || dir == "desc" || dir == "Desc"
}

func decode(query string) (*command, error) {
	var cmd command
	if err := json.Unmarshal([]byte(query), &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}
