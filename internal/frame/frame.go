// Package frame implements the small row-oriented table used to move data
// between readers, the harvesting engine and storage loaders.
//
// A Frame is a list of typed columns, rows aligned to those columns and an
// optional per-row index label (the name of the source table a row came
// from). Operations never modify their receiver; they return new frames.
//
// Cell values are nil (missing) or one of string, int64, float64, bool and
// time.Time. Raw frames produced by readers may hold other values under
// Kind Any until they are cast by the metadata package.
package frame

import (
	"fmt"
	"strings"
)

// Kind is the value kind of a column.
type Kind uint8

const (
	Any Kind = iota
	String
	Int
	Float
	Bool
	Time
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "time"
	default:
		return "any"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Frame holds rows aligned to Columns. Index is either empty or has one label
// per row.
type Frame struct {
	Columns []Column
	Rows    [][]any
	Index   []string
}

// New builds a frame and checks that every row matches the column count.
func New(cols []Column, rows [][]any) (*Frame, error) {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("frame: row %d has %d values, want %d", i, len(r), len(cols))
		}
	}
	return &Frame{Columns: cols, Rows: rows}, nil
}

// MustNew is New for static test data and fixtures; it panics on error.
func MustNew(cols []Column, rows [][]any) *Frame {
	f, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return f
}

// FromMap builds an untyped frame from named column slices, in the order
// given by names. All slices must have the same length.
func FromMap(names []string, data map[string][]any) (*Frame, error) {
	cols := make([]Column, len(names))
	n := -1
	for i, name := range names {
		cols[i] = Column{Name: name, Kind: Any}
		v, ok := data[name]
		if !ok {
			return nil, fmt.Errorf("frame: no data for column %q", name)
		}
		if n >= 0 && len(v) != n {
			return nil, fmt.Errorf("frame: column %q has %d values, want %d", name, len(v), n)
		}
		n = len(v)
	}
	if n < 0 {
		n = 0
	}
	rows := make([][]any, n)
	for r := range rows {
		row := make([]any, len(names))
		for c, name := range names {
			row[c] = data[name][r]
		}
		rows[r] = row
	}
	return New(cols, rows)
}

// Empty returns a zero-row frame with the given columns.
func Empty(cols ...Column) *Frame {
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Frame{Columns: out, Rows: [][]any{}}
}

// Len returns the number of rows. A nil frame has zero rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the position of the named column or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Values returns a copy of the named column, or nil if it does not exist.
func (f *Frame) Values(name string) []any {
	ix := f.ColumnIndex(name)
	if ix < 0 {
		return nil
	}
	out := make([]any, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[ix]
	}
	return out
}

// Value returns the cell at row i in the named column.
func (f *Frame) Value(i int, name string) any {
	ix := f.ColumnIndex(name)
	if ix < 0 || i < 0 || i >= len(f.Rows) {
		return nil
	}
	return f.Rows[i][ix]
}

// Label returns the index label of row i, or "" when the frame has no index.
func (f *Frame) Label(i int) string {
	if i < 0 || i >= len(f.Index) {
		return ""
	}
	return f.Index[i]
}

// Clone returns a deep copy of the frame structure. Cell values are shared,
// which is safe because they are immutable scalars.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Columns: make([]Column, len(f.Columns)),
		Rows:    make([][]any, len(f.Rows)),
	}
	copy(out.Columns, f.Columns)
	for i, r := range f.Rows {
		row := make([]any, len(r))
		copy(row, r)
		out.Rows[i] = row
	}
	if len(f.Index) > 0 {
		out.Index = make([]string, len(f.Index))
		copy(out.Index, f.Index)
	}
	return out
}

// WithLabel returns a copy of f with every row labeled as label.
func (f *Frame) WithLabel(label string) *Frame {
	out := f.Clone()
	out.Index = make([]string, len(out.Rows))
	for i := range out.Index {
		out.Index[i] = label
	}
	return out
}

// Concat stacks frames that share the same column names and kinds. Index
// labels are carried over; rows of unlabeled frames get "" labels when any
// input is labeled. With no inputs the result is an empty frame of cols.
func Concat(cols []Column, frames ...*Frame) (*Frame, error) {
	out := Empty(cols...)
	labeled := false
	for _, f := range frames {
		if f != nil && len(f.Index) > 0 {
			labeled = true
		}
	}
	for n, f := range frames {
		if f == nil {
			continue
		}
		if !sameColumns(cols, f.Columns) {
			return nil, fmt.Errorf("frame: concat input %d has columns [%s], want [%s]",
				n, strings.Join(f.Names(), ", "), strings.Join(out.Names(), ", "))
		}
		for i, r := range f.Rows {
			row := make([]any, len(r))
			copy(row, r)
			out.Rows = append(out.Rows, row)
			if labeled {
				out.Index = append(out.Index, f.Label(i))
			}
		}
	}
	return out, nil
}

func sameColumns(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two frames have the same columns, index and values.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !sameColumns(f.Columns, o.Columns) || len(f.Rows) != len(o.Rows) {
		return false
	}
	if len(f.Index) != len(o.Index) {
		return false
	}
	for i := range f.Index {
		if f.Index[i] != o.Index[i] {
			return false
		}
	}
	for i := range f.Rows {
		for j := range f.Rows[i] {
			if !Equal(f.Rows[i][j], o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}
