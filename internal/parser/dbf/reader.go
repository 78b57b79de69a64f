// Package dbf reads Visual FoxPro / dBase tables, the format of the FERC
// Form 1 archives before 2021, into untyped frames.
//
// Deleted records are skipped. Column names are normalized like CSV headers
// (RESPONDENT_ID becomes respondent_id) unless HeaderMap renames them.
// Character values are trimmed; blank strings and empty dates are null.
package dbf

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
	"go.uber.org/zap"

	"pudl/internal/frame"
	"pudl/internal/parser/csv"
)

// Options configures ReadFrame.
type Options struct {
	// HeaderMap renames DBF column names (raw or normalized) to column names.
	HeaderMap map[string]string
	// KeepEmpty keeps blank character values as "" instead of null.
	KeepEmpty bool
}

// source is the record stream ReadFrame consumes.
type source interface {
	Names() []string
	// Next returns the next record; ok is false at the end of the table.
	Next() (values []any, deleted, ok bool, err error)
	Close() error
}

type tableSource struct {
	t     *dbase.File
	names []string
}

func openTable(path string) (source, error) {
	t, err := dbase.OpenTable(&dbase.Config{Filename: path, TrimSpaces: true})
	if err != nil {
		return nil, fmt.Errorf("dbf: open %s: %w", path, err)
	}
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return &tableSource{t: t, names: names}, nil
}

func (s *tableSource) Names() []string { return s.names }

func (s *tableSource) Next() ([]any, bool, bool, error) {
	if s.t.EOF() {
		return nil, false, false, nil
	}
	row, err := s.t.Next()
	if err != nil {
		return nil, false, false, err
	}
	if row.Deleted {
		return nil, true, true, nil
	}
	values := make([]any, len(s.names))
	for i, n := range s.names {
		v, err := row.ValueByName(n)
		if err != nil {
			return nil, false, false, fmt.Errorf("column %s: %w", n, err)
		}
		values[i] = v
	}
	return values, false, true, nil
}

func (s *tableSource) Close() error { return s.t.Close() }

// openSource is a test hook.
var openSource = openTable

// ReadFrame reads the table at path.
func ReadFrame(ctx context.Context, path string, opt Options, logger *zap.Logger) (*frame.Frame, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return read(ctx, src, opt, logger.With(zap.String("path", path)))
}

func read(ctx context.Context, src source, opt Options, logger *zap.Logger) (*frame.Frame, error) {
	raw := src.Names()
	cols := make([]frame.Column, len(raw))
	seen := make(map[string]int, len(raw))
	for i, n := range raw {
		name, ok := opt.HeaderMap[n]
		if !ok {
			name = csv.NormalizeHeader(n)
			if m, mapped := opt.HeaderMap[name]; mapped {
				name = m
			}
		}
		if j, dup := seen[name]; dup {
			return nil, fmt.Errorf("dbf: columns %d and %d both map to %q", j, i, name)
		}
		seen[name] = i
		cols[i] = frame.Column{Name: name, Kind: frame.Any}
	}

	var rows [][]any
	deleted := 0
	for rec := 1; ; rec++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, del, ok, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("dbf: record %d: %w", rec, err)
		}
		if !ok {
			break
		}
		if del {
			deleted++
			continue
		}
		if len(values) != len(cols) {
			return nil, fmt.Errorf("dbf: record %d has %d values, want %d", rec, len(values), len(cols))
		}
		row := make([]any, len(cols))
		for i, v := range values {
			row[i] = cellValue(v, opt.KeepEmpty)
		}
		rows = append(rows, row)
	}
	logger.Debug("dbf read", zap.Int("rows", len(rows)), zap.Int("deleted", deleted))
	return frame.New(cols, rows)
}

// cellValue normalizes one DBF value. Padding is trimmed and the zero date
// of an empty D field becomes null.
func cellValue(v any, keepEmpty bool) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" && !keepEmpty {
			return nil
		}
		return s
	case []byte:
		return cellValue(string(x), keepEmpty)
	case time.Time:
		if x.IsZero() || x.Year() <= 1 {
			return nil
		}
		return x
	}
	return v
}
