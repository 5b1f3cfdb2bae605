package ormbase

import (
	"errors"
	"sort"
	"strings"

	"github.com/tinywasm/fmt"
)

// ErrNotFound is returned when ReadOne() finds no matching row.
var ErrNotFound = errors.New("record not found")

// ErrValidation is wrapped by every field and record validation failure.
var ErrValidation = errors.New("validation error")

// ErrEmptyTable is returned when a query targets an empty table name.
var ErrEmptyTable = errors.New("empty table name")

// ErrNoTxSupport is returned by DB.Tx() when the executor does not implement TxExecutor.
var ErrNoTxSupport = errors.New("transaction not supported")

// ErrConfig is wrapped by every configuration error: bad type definitions,
// writes to read-only fields and mutations of immutable records.
var ErrConfig = errors.New("configuration error")

// ErrImmutable is returned when a flush touches a persisted immutable record.
var ErrImmutable = errors.New("object is immutable")

// ErrReadOnly is returned when a read-only field is written outside the controlled path.
var ErrReadOnly = errors.New("field is read-only")

// ErrUnknownField is returned when a field is neither a column nor a property.
var ErrUnknownField = errors.New("unknown field")

// ErrUnknownType is returned by the registry for unregistered type names.
var ErrUnknownType = errors.New("unknown record type")

// ErrFlushLoop is returned when flush hooks keep scheduling new work.
var ErrFlushLoop = errors.New("flush hooks keep scheduling work")

// ErrMultipleResults is returned when a single-row lookup matches more than one row.
var ErrMultipleResults = errors.New("multiple results for single-row lookup")

// ConfigError reports a record type definition that cannot be resolved.
type ConfigError struct {
	Type string
	Msg  string
}

func configErr(typeName, format string, args ...any) *ConfigError {
	return &ConfigError{Type: typeName, Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Type == "" {
		return ErrConfig.Error() + ": " + e.Msg
	}
	return ErrConfig.Error() + ": " + e.Type + ": " + e.Msg
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// ImmutableError is raised by the immutability flush hook.
type ImmutableError struct {
	Type string
}

func (e *ImmutableError) Error() string {
	return ErrImmutable.Error() + ": " + e.Type
}

func (e *ImmutableError) Unwrap() []error { return []error{ErrImmutable, ErrConfig} }

// ReadOnlyError is raised by Base.Set for read-only fields.
type ReadOnlyError struct {
	Type  string
	Field string
}

func (e *ReadOnlyError) Error() string {
	return e.Type + "." + e.Field + " is readonly"
}

func (e *ReadOnlyError) Unwrap() []error { return []error{ErrReadOnly, ErrConfig} }

// FieldError is a single human-readable validation failure.
// Validators return it without Field/Table; the assignment interceptor
// and Validate tag it with the offending field and record type.
type FieldError struct {
	Field   string
	Table   string
	Message string
}

// NewFieldError builds an untagged field error, typically from a Validator.
func NewFieldError(message string) *FieldError {
	return &FieldError{Message: message}
}

func (e *FieldError) Error() string {
	switch {
	case e.Table != "" && e.Field != "":
		return e.Table + "." + e.Field + ": " + e.Message
	case e.Field != "":
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// ValidationErrors aggregates every problem found in one validation pass,
// keyed by field name.
type ValidationErrors struct {
	Errors map[string][]*FieldError
}

// Add appends err under its field.
func (v *ValidationErrors) Add(err *FieldError) {
	if v.Errors == nil {
		v.Errors = make(map[string][]*FieldError)
	}
	v.Errors[err.Field] = append(v.Errors[err.Field], err)
}

// Merge folds a validation error (aggregated or single) into v.
// It reports false when err is not a validation error.
func (v *ValidationErrors) Merge(err error) bool {
	var agg *ValidationErrors
	if errors.As(err, &agg) {
		for _, field := range agg.Fields() {
			for _, fe := range agg.Errors[field] {
				v.Add(fe)
			}
		}
		return true
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		v.Add(fe)
		return true
	}
	return false
}

// Len returns the number of collected errors.
func (v *ValidationErrors) Len() int {
	n := 0
	for _, errs := range v.Errors {
		n += len(errs)
	}
	return n
}

// Fields returns the failing field names in sorted order.
func (v *ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (v *ValidationErrors) Error() string {
	var parts []string
	for _, f := range v.Fields() {
		for _, fe := range v.Errors[f] {
			parts = append(parts, fe.Error())
		}
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) Unwrap() error { return ErrValidation }

// UnknownFieldError reports a write to a name that is neither a column nor a property.
type UnknownFieldError struct {
	Type  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return ErrUnknownField.Error() + ": " + e.Type + "." + e.Field
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// UnknownTypeError reports a type name missing from the registry.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string { return ErrUnknownType.Error() + ": " + e.Name }

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }
