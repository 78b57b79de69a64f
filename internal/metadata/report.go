package metadata

import (
	"encoding/json"

	"pudl/internal/frame"
)

// Stats counts invalid entities (key groups of a field, or fields of a
// resource) against a tolerance.
type Stats struct {
	All       int     `json:"all"`
	Invalid   int     `json:"invalid"`
	Tolerance float64 `json:"tolerance"`
	Actual    float64 `json:"actual"`
}

func newStats(all, invalid int, tolerance float64) Stats {
	s := Stats{All: all, Invalid: invalid, Tolerance: tolerance}
	if all > 0 {
		s.Actual = float64(invalid) / float64(all)
	}
	return s
}

// Valid reports whether the invalid fraction is within tolerance.
func (s Stats) Valid() bool { return s.Actual <= s.Tolerance }

// GroupError is a failed aggregation for one primary key tuple.
type GroupError struct {
	Key []any
	Err error
	// Detail is the ErrorFunc result, when one was given.
	Detail any
}

// Report returns what the report shows for the group: Detail when set,
// otherwise the error message.
func (e GroupError) Report() any {
	if e.Detail != nil {
		return e.Detail
	}
	return e.Err.Error()
}

// FieldReport is the aggregation outcome of one field.
type FieldReport struct {
	Valid  bool
	Stats  Stats
	Errors []GroupError
}

// Error returns the failure recorded for the given key tuple.
func (r FieldReport) Error(key ...any) (GroupError, bool) {
	for _, e := range r.Errors {
		if frame.CompareKeys(e.Key, key) == 0 {
			return e, true
		}
	}
	return GroupError{}, false
}

// MarshalJSON encodes errors as a mapping from the key tuple to its detail.
func (r FieldReport) MarshalJSON() ([]byte, error) {
	var errs map[string]any
	if len(r.Errors) > 0 {
		errs = make(map[string]any, len(r.Errors))
		for _, e := range r.Errors {
			errs[frame.KeyString(e.Key)] = e.Report()
		}
	}
	return json.Marshal(struct {
		Valid  bool           `json:"valid"`
		Stats  Stats          `json:"stats"`
		Errors map[string]any `json:"errors"`
	}{r.Valid, r.Stats, errs})
}

// Report is the aggregation outcome of a resource.
//
// Harvest returns a nil *Report when nothing was aggregated: aggregation is
// off or the resource's input is absent. A nil report has no failed groups;
// use Ok and InvalidGroups, which accept nil, rather than reading Valid or
// Fields directly.
type Report struct {
	Valid  bool                   `json:"valid"`
	Stats  Stats                  `json:"stats"`
	Fields map[string]FieldReport `json:"fields"`
}

// Ok reports whether the report is valid. A nil report is valid.
func (r *Report) Ok() bool { return r == nil || r.Valid }

// InvalidGroups sums the invalid groups over all fields.
func (r *Report) InvalidGroups() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range r.Fields {
		n += f.Stats.Invalid
	}
	return n
}

// buildReport assembles the report from per-field errors over ngroups.
func (r *Resource) buildReport(ngroups int, errs map[string][]GroupError) *Report {
	rep := &Report{Fields: make(map[string]FieldReport, len(r.Schema.Fields))}
	invalid := 0
	for _, f := range r.Schema.Fields {
		st := newStats(ngroups, len(errs[f.Name]), f.Harvest.Tolerance)
		fr := FieldReport{Valid: st.Valid(), Stats: st, Errors: errs[f.Name]}
		if !fr.Valid {
			invalid++
		}
		rep.Fields[f.Name] = fr
	}
	rep.Stats = newStats(len(r.Schema.Fields), invalid, r.Policy.Tolerance)
	rep.Valid = rep.Stats.Valid()
	return rep
}
