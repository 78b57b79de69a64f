// Package parser opens an input file and reads it into an untyped frame with
// the reader for its format.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pudl/internal/datasource"
	"pudl/internal/frame"
	"pudl/internal/parser/csv"
	"pudl/internal/parser/dbf"
)

// Formats understood by Read.
const (
	FormatCSV = "csv"
	FormatDBF = "dbf"
)

// Options are the reader settings shared by every format plus the CSV
// specific ones.
type Options struct {
	HeaderMap    map[string]string
	KeepEmpty    bool
	Comma        rune
	Replacements []csv.Replacement
	OnError      func(line int, err error)
}

// DetectFormat picks the format from the path extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".dbf":
		return FormatDBF, nil
	}
	return "", fmt.Errorf("parser: cannot detect format of %s", path)
}

// Read reads the input at path. An empty format is detected from the
// extension. CSV inputs are streamed from src.Open; DBF tables need random
// access and are read from src.Path.
func Read(ctx context.Context, src datasource.Source, path, format string, opt Options, logger *zap.Logger) (*frame.Frame, error) {
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	switch format {
	case FormatCSV:
		rc, err := src.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		comma := opt.Comma
		if comma == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
			comma = '\t'
		}
		return csv.ReadFrame(ctx, rc, csv.Options{
			Comma:        comma,
			KeepEmpty:    opt.KeepEmpty,
			HeaderMap:    opt.HeaderMap,
			Replacements: opt.Replacements,
			OnError:      opt.OnError,
		}, logger)
	case FormatDBF:
		return dbf.ReadFrame(ctx, src.Path(path), dbf.Options{HeaderMap: opt.HeaderMap, KeepEmpty: opt.KeepEmpty}, logger)
	}
	return nil, fmt.Errorf("parser: unsupported format %q", format)
}
