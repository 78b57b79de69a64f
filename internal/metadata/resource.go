package metadata

import (
	"fmt"
	"slices"

	"pudl/internal/ddl"
	"pudl/internal/frame"
)

// ResourceHarvest is the harvest policy of a resource.
type ResourceHarvest struct {
	// Harvest merges every compatible input. When false only the input named
	// like the resource is used.
	Harvest bool `json:"harvest"`
	// Tolerance is the largest fraction of invalid fields for which the
	// harvested resource is still valid.
	Tolerance float64 `json:"tolerance"`
}

// Source describes where a resource's data comes from.
type Source struct {
	Title string `json:"title"`
	Path  string `json:"path,omitempty"`
	Email string `json:"email,omitempty"`
}

// Resource is one table: its schema, harvest policy and descriptive
// metadata. Build it with NewResource.
type Resource struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Policy      ResourceHarvest `json:"harvest"`
	Schema      Schema          `json:"schema"`
	Sources     []Source        `json:"sources,omitempty"`
	Keywords    []string        `json:"keywords,omitempty"`
	Group       string          `json:"etlGroup,omitempty"`
	Namespace   string          `json:"fieldNamespace,omitempty"`
}

// NewResource validates r and returns an independent copy.
func NewResource(r Resource) (*Resource, error) {
	v := violations{subject: "resource " + r.Name}
	if r.Name == "" {
		v.subject = "resource"
		v.addf("name must not be empty")
	}
	if t := r.Policy.Tolerance; t < 0 || t > 1 {
		v.addf("harvest tolerance %v is outside [0, 1]", t)
	}
	v.checkUnique("keyword", r.Keywords)
	v.merge(r.Schema.Validate())
	if err := v.err(); err != nil {
		return nil, err
	}

	out := r
	out.Schema = r.Schema.clone()
	out.Sources = slices.Clone(r.Sources)
	out.Keywords = slices.Clone(r.Keywords)
	return &out, nil
}

// MustResource is NewResource for static definitions; it panics on error.
func MustResource(r Resource) *Resource {
	out, err := NewResource(r)
	if err != nil {
		panic(err)
	}
	return out
}

// Columns returns the frame columns of the resource, in field order.
func (r *Resource) Columns() []frame.Column {
	out := make([]frame.Column, len(r.Schema.Fields))
	for i, f := range r.Schema.Fields {
		out[i] = f.FrameColumn()
	}
	return out
}

// Empty returns the zero-row frame with the resource's columns.
func (r *Resource) Empty() *frame.Frame {
	return frame.Empty(r.Columns()...)
}

// TableDef is the storage definition of the resource.
func (r *Resource) TableDef() ddl.TableDef {
	t := ddl.TableDef{
		Name:       r.Name,
		Columns:    make([]ddl.ColumnDef, len(r.Schema.Fields)),
		PrimaryKey: slices.Clone(r.Schema.PrimaryKey),
		Comment:    r.Description,
	}
	for i, f := range r.Schema.Fields {
		t.Columns[i] = f.Column()
	}
	for _, k := range r.Schema.ForeignKeys {
		t.ForeignKeys = append(t.ForeignKeys, ddl.ForeignKeyDef{
			Columns:    slices.Clone(k.Fields),
			RefTable:   k.Reference.Resource,
			RefColumns: slices.Clone(k.Reference.Fields),
		})
	}
	return t
}

// Rows returns the rows of a formatted frame in table column order with
// values converted by Field.StorageValue.
func (r *Resource) Rows(f *frame.Frame) ([][]any, error) {
	idx := make([]int, len(r.Schema.Fields))
	for i, fd := range r.Schema.Fields {
		if idx[i] = f.ColumnIndex(fd.Name); idx[i] < 0 {
			return nil, fmt.Errorf("resource %s: frame has no column %q", r.Name, fd.Name)
		}
	}
	out := make([][]any, len(f.Rows))
	for j, row := range f.Rows {
		rec := make([]any, len(idx))
		for i, c := range idx {
			rec[i] = r.Schema.Fields[i].StorageValue(row[c])
		}
		out[j] = rec
	}
	return out, nil
}

// MatchPrimaryKey matches the primary key fields to input column names. It
// returns {input name: key field} or nil when some key field has no match.
//
// A key field matches an input of the same name. A periodic key field such
// as report_year also matches the same basename at a finer period
// (report_quarter, report_month, report_date). Input names sharing a
// basename are rejected because the match would be ambiguous.
func (r *Resource) MatchPrimaryKey(names []string) (map[string]string, error) {
	if base, dup := duplicateBasename(names); dup {
		return nil, &SchemaError{
			Subject:    "resource " + r.Name,
			Violations: []string{"input column names contain duplicate basename " + quote(base)},
		}
	}
	have := make(map[string]struct{}, len(names))
	for _, n := range names {
		have[n] = struct{}{}
	}
	match := make(map[string]string, len(r.Schema.PrimaryKey))
	for _, k := range r.Schema.PrimaryKey {
		for _, cand := range ExpandPeriodicNames(k) {
			if _, ok := have[cand]; ok {
				match[cand] = k
				break
			}
		}
	}
	if len(match) != len(r.Schema.PrimaryKey) {
		return nil, nil
	}
	return match, nil
}

// Format conforms f to the resource schema.
//
// A nil frame, or one whose columns do not match the primary key, yields the
// empty frame. Otherwise periodic key columns are renamed to their key
// field, columns are reordered to the schema (absent fields become all
// null), values are cast to the field types and renamed periodic key values
// are snapped to the start of their period. Missing-value strings and enum
// values outside the declared set become null. Index labels are kept.
func (r *Resource) Format(f *frame.Frame) (*frame.Frame, error) {
	if f == nil {
		return r.Empty(), nil
	}
	if len(r.Schema.PrimaryKey) == 0 {
		return nil, &LogicError{Op: "format " + r.Name, Reason: "a primary key is required"}
	}
	match, err := r.MatchPrimaryKey(f.Names())
	if err != nil {
		return nil, err
	}
	if match == nil {
		return r.Empty(), nil
	}
	renamed := make(map[string]string, len(match)) // key field -> input column
	for in, key := range match {
		renamed[key] = in
	}

	fields := r.Schema.Fields
	plans := make([]castPlan, len(fields))
	for i, fld := range fields {
		p := castPlan{field: fld, src: -1}
		if in, ok := renamed[fld.Name]; ok {
			p.src = f.ColumnIndex(in)
			if in != fld.Name {
				_, p.snap = SplitPeriod(fld.Name)
			}
		} else {
			p.src = f.ColumnIndex(fld.Name)
		}
		if fld.Constraints.Enum != nil {
			p.enum = make(map[string]struct{}, len(fld.Constraints.Enum))
			for _, e := range fld.Constraints.EnumStrings() {
				p.enum[e] = struct{}{}
			}
		}
		plans[i] = p
	}

	missing := r.Schema.missingSet()
	out := r.Empty()
	out.Rows = make([][]any, len(f.Rows))
	for ri, raw := range f.Rows {
		row := make([]any, len(fields))
		for ci, p := range plans {
			if p.src < 0 {
				continue
			}
			v, err := p.cast(raw[p.src], missing)
			if err != nil {
				return nil, &CastError{Field: p.field.Name, Type: p.field.Type, Row: ri, Value: raw[p.src], Err: err}
			}
			row[ci] = v
		}
		out.Rows[ri] = row
	}
	if len(f.Index) > 0 {
		out.Index = slices.Clone(f.Index)
	}
	return out, nil
}

// castPlan is how one output column is filled from the input.
type castPlan struct {
	field Field
	src   int
	snap  Period
	enum  map[string]struct{}
}

func (p castPlan) cast(v any, missing map[string]struct{}) (any, error) {
	if s, ok := v.(string); ok {
		if _, isMissing := missing[s]; isMissing {
			return nil, nil
		}
	}
	if frame.IsNull(v) {
		return nil, nil
	}
	if p.snap != "" {
		ts, err := castTime(v, p.snap == PeriodYear)
		if err != nil {
			return nil, err
		}
		ts = SnapToPeriod(ts, p.snap)
		if p.field.Type == TypeInteger && p.snap == PeriodYear {
			return int64(ts.Year()), nil
		}
		v = ts
	}
	out, err := castValue(p.field.Type, v)
	if err != nil {
		return nil, err
	}
	if p.enum != nil {
		if _, ok := p.enum[out.(string)]; !ok {
			return nil, nil
		}
	}
	return out, nil
}

func quote(s string) string { return `"` + s + `"` }
