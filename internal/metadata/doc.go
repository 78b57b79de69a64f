// Package metadata models warehouse tables declaratively and harvests them
// from raw source frames.
//
// A Field describes one column: its semantic type, constraints and the
// aggregate used to reconcile values reported by several sources. A
// Resource is a table schema plus a harvest policy. A Package is a set of
// resources whose foreign keys must resolve into referenced primary keys.
//
// Harvesting formats each input frame to the resource schema (matching
// periodic key columns such as report_date to a report_year key), stacks the
// inputs and aggregates rows sharing a primary key. Disagreeing sources are
// not errors: each failed group is counted in a Report and compared to the
// field's tolerance. Structural problems are *SchemaError values returned
// when objects are built.
//
// The package does no I/O and keeps no global state. Aggregate functions
// are plain values; Aggregators is an explicit name table for callers that
// load definitions from files.
package metadata
