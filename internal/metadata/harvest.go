package metadata

import (
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"pudl/internal/frame"
)

// Option configures Harvest and Aggregate.
type Option func(*options)

type options struct {
	aggregate *bool
	strict    bool
	errorFunc ErrorFunc
	workers   int
}

// WithAggregate overrides whether harvested rows are aggregated by primary
// key. The default is the resource's harvest flag.
func WithAggregate(aggregate bool) Option {
	return func(o *options) { o.aggregate = &aggregate }
}

// WithStrict makes the first failed group aggregation an error.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// WithErrorFunc sets how failed groups are reported.
func WithErrorFunc(fn ErrorFunc) Option {
	return func(o *options) { o.errorFunc = fn }
}

// WithWorkers bounds the number of fields aggregated concurrently.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func collect(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Harvest builds the resource from named input frames.
//
// With the harvest flag off, only dfs[r.Name] is formatted; when it is
// absent the empty frame and a nil report are returned. With the flag on,
// every input is formatted and the results are concatenated in source-name
// order. Rows are labeled with their source name.
//
// When aggregation is on (see WithAggregate) the rows are aggregated by
// primary key and a report is returned. Otherwise the labeled rows are
// returned with a nil report.
func (r *Resource) Harvest(dfs map[string]*frame.Frame, opts ...Option) (*frame.Frame, *Report, error) {
	o := collect(opts)
	aggregate := r.Policy.Harvest
	if o.aggregate != nil {
		aggregate = *o.aggregate
	}

	var df *frame.Frame
	switch in, ok := dfs[r.Name]; {
	case r.Policy.Harvest:
		names := make([]string, 0, len(dfs))
		for name := range dfs {
			names = append(names, name)
		}
		slices.Sort(names)
		parts := make([]*frame.Frame, 0, len(names))
		for _, name := range names {
			f, err := r.Format(dfs[name])
			if err != nil {
				return nil, nil, err
			}
			parts = append(parts, f.WithLabel(name))
		}
		var err error
		if df, err = frame.Concat(r.Columns(), parts...); err != nil {
			return nil, nil, err
		}
	case ok:
		f, err := r.Format(in)
		if err != nil {
			return nil, nil, err
		}
		df = f.WithLabel(r.Name)
	default:
		return r.Empty(), nil, nil
	}

	if aggregate {
		return r.Aggregate(df, opts...)
	}
	return df, nil, nil
}

// Aggregate groups a formatted frame by primary key and reduces every other
// field with its aggregate. Rows with a null key value are dropped and the
// result is ordered by key, one row per key.
//
// Failed groups aggregate to null and are recorded in the report, or, in
// strict mode, the first failure in field then key order is returned as an
// *AggregationError.
func (r *Resource) Aggregate(f *frame.Frame, opts ...Option) (*frame.Frame, *Report, error) {
	if len(r.Schema.PrimaryKey) == 0 {
		return nil, nil, &LogicError{Op: "aggregate " + r.Name, Reason: "a primary key is required"}
	}
	o := collect(opts)

	groups, err := frame.GroupBy(f, r.Schema.PrimaryKey)
	if err != nil {
		return nil, nil, err
	}

	fields := r.Schema.Fields
	out := r.Empty()
	out.Rows = make([][]any, len(groups))
	for gi := range groups {
		out.Rows[gi] = make([]any, len(fields))
	}

	// Each field owns its column of out and its slot in errs.
	errs := make([][]GroupError, len(fields))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for ci, fld := range fields {
		src := f.ColumnIndex(fld.Name)
		if r.Schema.IsPrimaryKey(fld.Name) {
			k := slices.Index(r.Schema.PrimaryKey, fld.Name)
			for gi, grp := range groups {
				out.Rows[gi][ci] = grp.Key[k]
			}
			continue
		}
		if src < 0 {
			continue
		}
		agg := fld.aggregate()
		g.Go(func() error {
			values := make([]any, 0, 8)
			sources := make([]string, 0, 8)
			for gi, grp := range groups {
				values, sources = values[:0], sources[:0]
				for _, row := range grp.Rows {
					values = append(values, f.Rows[row][src])
					sources = append(sources, f.Label(row))
				}
				v, err := agg(values)
				if err != nil {
					ge := GroupError{Key: grp.Key, Err: err}
					if o.errorFunc != nil {
						ge.Detail = o.errorFunc(slices.Clone(values), slices.Clone(sources), err)
					}
					errs[ci] = append(errs[ci], ge)
					if o.strict {
						return nil
					}
					continue
				}
				out.Rows[gi][ci] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	byField := make(map[string][]GroupError)
	for ci, fld := range fields {
		if len(errs[ci]) == 0 {
			continue
		}
		if o.strict {
			first := errs[ci][0]
			return nil, nil, &AggregationError{Resource: r.Name, Field: fld.Name, Key: first.Key, Err: first.Err}
		}
		byField[fld.Name] = errs[ci]
	}
	return out, r.buildReport(len(groups), byField), nil
}
