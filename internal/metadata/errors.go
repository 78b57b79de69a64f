package metadata

import (
	"errors"
	"fmt"
	"strings"

	"pudl/internal/frame"
)

// Aggregation failures. Aggregators wrap these so callers can use errors.Is.
var (
	ErrNotUnique      = errors.New("not unique")
	ErrNoMostFrequent = errors.New("no value is most frequent")
	ErrBelowFrequency = errors.New("most frequent value below minimum frequency")
)

// SchemaError reports structural misconfiguration. Every violation found in
// one validation run is listed.
type SchemaError struct {
	Subject    string
	Violations []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Subject != "" {
		b.WriteString(" in ")
		b.WriteString(e.Subject)
	}
	if len(e.Violations) == 1 {
		b.WriteString(": ")
		b.WriteString(e.Violations[0])
		return b.String()
	}
	b.WriteByte(':')
	for _, v := range e.Violations {
		b.WriteString("\n\t* ")
		b.WriteString(v)
	}
	return b.String()
}

// violations collects schema violations for one subject.
type violations struct {
	subject string
	list    []string
}

func (v *violations) addf(format string, args ...any) {
	v.list = append(v.list, fmt.Sprintf(format, args...))
}

// merge adds the violations of a nested SchemaError, prefixed with its
// subject, or the message of any other error.
func (v *violations) merge(err error) {
	if err == nil {
		return
	}
	var se *SchemaError
	if errors.As(err, &se) {
		for _, s := range se.Violations {
			if se.Subject != "" {
				s = se.Subject + ": " + s
			}
			v.list = append(v.list, s)
		}
		return
	}
	v.list = append(v.list, err.Error())
}

func (v *violations) err() error {
	if len(v.list) == 0 {
		return nil
	}
	return &SchemaError{Subject: v.subject, Violations: v.list}
}

// LogicError reports an operation that is invalid for the object's state,
// such as aggregating a resource without a primary key.
type LogicError struct {
	Op     string
	Reason string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// AggregationError is one failed group aggregation. It is only returned in
// strict mode; otherwise it is recorded in the report.
type AggregationError struct {
	Resource string
	Field    string
	Key      []any
	Err      error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate %s.%s at %s: %v", e.Resource, e.Field, frame.KeyString(e.Key), e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// CastError reports a value that cannot be converted to its field type.
type CastError struct {
	Field string
	Type  FieldType
	Row   int
	Value any
	Err   error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast %s to %s at row %d: %v: %v", e.Field, e.Type, e.Row, e.Value, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }
