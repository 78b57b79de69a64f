package metadata

import (
	"fmt"
	"slices"

	"pudl/internal/frame"
)

// DefaultMinFrequency is the share of non-null values the most frequent
// value must reach under the default aggregate.
const DefaultMinFrequency = 0.7

// AggregateFunc reduces the values of one key group to a single value. A
// non-nil error marks the group invalid for the field; it is data, not a
// failure of the run.
type AggregateFunc func(values []any) (any, error)

// ErrorFunc turns a failed group into the detail stored in the report. It
// receives the group's values, the source label of each value and the
// aggregation error.
type ErrorFunc func(values []any, sources []string, err error) any

var defaultAggregate = MostAndMoreFrequent(DefaultMinFrequency)

// counted is a distinct value and its occurrences, in first-seen order.
type counted struct {
	value any
	n     int
}

// valueCounts counts the non-null values, most frequent first. Ties keep
// first-seen order.
func valueCounts(values []any) ([]counted, int) {
	var out []counted
	total := 0
next:
	for _, v := range values {
		if frame.IsNull(v) {
			continue
		}
		total++
		for i := range out {
			if frame.Equal(out[i].value, v) {
				out[i].n++
				continue next
			}
		}
		out = append(out, counted{value: v, n: 1})
	}
	slices.SortStableFunc(out, func(a, b counted) int { return b.n - a.n })
	return out, total
}

// Unique returns the single distinct non-null value. Several distinct values
// fail with ErrNotUnique. An all-null group yields nil.
func Unique(values []any) (any, error) {
	c, _ := valueCounts(values)
	switch len(c) {
	case 0:
		return nil, nil
	case 1:
		return c[0].value, nil
	default:
		return nil, fmt.Errorf("%w: %d distinct values", ErrNotUnique, len(c))
	}
}

// MostFrequent returns the most frequent non-null value. A tie for first
// place fails with ErrNoMostFrequent.
func MostFrequent(values []any) (any, error) {
	c, _ := valueCounts(values)
	if len(c) == 0 {
		return nil, nil
	}
	if len(c) > 1 && c[0].n == c[1].n {
		return nil, fmt.Errorf("%w: %v and %v both occur %d times", ErrNoMostFrequent, c[0].value, c[1].value, c[0].n)
	}
	return c[0].value, nil
}

// MostAndMoreFrequent returns the most frequent non-null value when it
// accounts for at least minFrequency of the non-null values.
func MostAndMoreFrequent(minFrequency float64) AggregateFunc {
	return func(values []any) (any, error) {
		mode, err := MostFrequent(values)
		if err != nil {
			return nil, err
		}
		c, total := valueCounts(values)
		if len(c) == 0 {
			return nil, nil
		}
		if freq := float64(c[0].n) / float64(total); freq < minFrequency {
			return nil, fmt.Errorf("%w: %v occurs in %.3g of values, want %.3g", ErrBelowFrequency, mode, freq, minFrequency)
		}
		return mode, nil
	}
}

// First returns the first non-null value. It never fails.
func First(values []any) (any, error) {
	for _, v := range values {
		if !frame.IsNull(v) {
			return v, nil
		}
	}
	return nil, nil
}

// BySource reports a failed group as its values keyed by source label.
func BySource(values []any, sources []string, _ error) any {
	out := make(map[string][]any)
	for i, v := range values {
		src := ""
		if i < len(sources) {
			src = sources[i]
		}
		out[src] = append(out[src], v)
	}
	return out
}

// Aggregators is an explicit, name-addressable set of aggregate functions.
// Parametrized aggregates are built by their factory with an option map.
type Aggregators map[string]func(opts map[string]any) (AggregateFunc, error)

// DefaultAggregators returns the built-in set: unique, most_frequent,
// most_and_more_frequent (option min_frequency) and first.
func DefaultAggregators() Aggregators {
	fixed := func(fn AggregateFunc) func(map[string]any) (AggregateFunc, error) {
		return func(map[string]any) (AggregateFunc, error) { return fn, nil }
	}
	return Aggregators{
		"unique":        fixed(Unique),
		"most_frequent": fixed(MostFrequent),
		"first":         fixed(First),
		"most_and_more_frequent": func(opts map[string]any) (AggregateFunc, error) {
			min := DefaultMinFrequency
			if v, ok := opts["min_frequency"]; ok {
				switch x := v.(type) {
				case float64:
					min = x
				case int:
					min = float64(x)
				default:
					return nil, fmt.Errorf("min_frequency must be a number, got %T", v)
				}
			}
			if min < 0 || min > 1 {
				return nil, fmt.Errorf("min_frequency %v is outside [0, 1]", min)
			}
			return MostAndMoreFrequent(min), nil
		},
	}
}

// Resolve builds the named aggregate.
func (a Aggregators) Resolve(name string, opts map[string]any) (AggregateFunc, error) {
	fn, ok := a[name]
	if !ok {
		names := make([]string, 0, len(a))
		for n := range a {
			names = append(names, n)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("unknown aggregate %q (known: %v)", name, names)
	}
	return fn(opts)
}
