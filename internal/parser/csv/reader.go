// Package csv reads delimited text files into untyped frames.
//
// The first record is the header. Titles are normalized to snake_case names
// (see NormalizeHeader) unless header_map renames them. Cells are strings;
// empty cells are null unless KeepEmpty is set, so the resource schema's
// missing values decide what else is null.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"pudl/internal/frame"
)

// Options configures ReadFrame. The zero value reads comma-separated files
// and trims cells.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// NoTrim keeps leading and trailing spaces in cells.
	NoTrim bool
	// KeepEmpty keeps empty cells as "" instead of null.
	KeepEmpty bool
	// LazyQuotes relaxes quote handling (csv.Reader.LazyQuotes).
	LazyQuotes bool
	// HeaderMap renames header titles to column names.
	HeaderMap map[string]string
	// Replacements are applied to the raw bytes before parsing.
	Replacements []Replacement
	// OnError receives malformed rows, which are then skipped. When nil the
	// first malformed row aborts the read.
	OnError func(line int, err error)
}

const logEveryN = 50_000

// ReadFrame parses src into a frame. src is closed when ReadFrame returns.
// Short rows are padded with nulls; long rows are malformed.
func ReadFrame(ctx context.Context, src io.ReadCloser, opt Options, logger *zap.Logger) (*frame.Frame, error) {
	defer src.Close()
	if logger == nil {
		logger = zap.NewNop()
	}

	cr := csv.NewReader(wrapReplacements(src, opt.Replacements))
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: empty input, a header row is required")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	names, err := headerNames(hdr, opt.HeaderMap)
	if err != nil {
		return nil, err
	}
	cols := make([]frame.Column, len(names))
	for i, n := range names {
		cols[i] = frame.Column{Name: n, Kind: frame.Any}
	}

	var rows [][]any
	skipped := 0
	fail := func(line int, err error) error {
		if opt.OnError == nil {
			return fmt.Errorf("csv: line %d: %w", line, err)
		}
		skipped++
		opt.OnError(line, err)
		return nil
	}

	// Line numbers come from the reader, so records with quoted newlines
	// do not shift the lines reported for later rows.
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			if ferr := fail(line, err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(cols) {
			if ferr := fail(line, fmt.Errorf("%d fields, header has %d", len(rec), len(cols))); ferr != nil {
				return nil, ferr
			}
			continue
		}
		row := make([]any, len(cols))
		for i, v := range rec {
			if !opt.NoTrim {
				v = strings.TrimSpace(v)
			}
			if v == "" && !opt.KeepEmpty {
				continue
			}
			row[i] = strings.Clone(v)
		}
		rows = append(rows, row)
		if len(rows)%logEveryN == 0 {
			logger.Debug("csv progress", zap.Int("line", line), zap.Int("rows", len(rows)))
		}
	}

	if skipped > 0 {
		logger.Warn("csv rows skipped", zap.Int("skipped", skipped), zap.Int("rows", len(rows)))
	}
	return frame.New(cols, rows)
}
