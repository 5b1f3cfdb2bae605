package boltdb

import (
	"encoding/json"
	"strings"

	"github.com/tinywasm/fmt"
)

// matches folds the conditions left to right using each one's AND/OR logic.
func matches(row map[string]any, conds []condition, want []any) (bool, error) {
	result := true
	for i, c := range conds {
		ok, err := eval(row[c.Field], c.Op, want[i])
		if err != nil {
			return false, err
		}
		switch {
		case i == 0:
			result = ok
		case c.Logic == "OR":
			result = result || ok
		default:
			result = result && ok
		}
	}
	return result, nil
}

func eval(got any, op string, want any) (bool, error) {
	switch op {
	case "=":
		return got != nil && want != nil && compare(got, want) == 0, nil
	case "!=":
		return got != nil && want != nil && compare(got, want) != 0, nil
	case "<":
		return got != nil && want != nil && compare(got, want) < 0, nil
	case "<=":
		return got != nil && want != nil && compare(got, want) <= 0, nil
	case ">":
		return got != nil && want != nil && compare(got, want) > 0, nil
	case ">=":
		return got != nil && want != nil && compare(got, want) >= 0, nil
	case "LIKE":
		s, ok := got.(string)
		p, ok2 := want.(string)
		return ok && ok2 && like(s, p), nil
	case "IN":
		list, ok := want.([]any)
		if !ok {
			return false, fmt.Err("boltdb: IN expects a list")
		}
		for _, w := range list {
			if got != nil && w != nil && compare(got, w) == 0 {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Err("boltdb: unsupported operator", op)
}

// compare orders nil first, then numbers, booleans and strings.
// Values of unrelated kinds compare by their text form.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			if xi, ok := asInt(a); ok {
				if yi, ok := asInt(b); ok {
					return cmpOrdered(xi, yi)
				}
			}
			return cmpOrdered(x, y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			return cmpOrdered(boolInt(x), boolInt(y))
		}
	}
	return strings.Compare(text(a), text(b))
}

func cmpOrdered[T int64 | float64 | int](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, _ := json.Marshal(v)
	return string(data)
}

// like implements SQL LIKE with % and _ wildcards, case-sensitive.
func like(s, pattern string) bool {
	str, pat := []rune(s), []rune(pattern)
	var match func(i, j int) bool
	match = func(i, j int) bool {
		for j < len(pat) {
			switch pat[j] {
			case '%':
				for k := i; k <= len(str); k++ {
					if match(k, j+1) {
						return true
					}
				}
				return false
			case '_':
				if i >= len(str) {
					return false
				}
			default:
				if i >= len(str) || str[i] != pat[j] {
					return false
				}
			}
			i++
			j++
		}
		return i == len(str)
	}
	return match(0, 0)
}
