package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pudl/internal/config"
	"pudl/internal/datasource"
	"pudl/internal/frame"
	"pudl/internal/metrics"
	"pudl/internal/parser"
	"pudl/internal/parser/csv"
)

// ReadInputs reads every input into a frame keyed by input name. Malformed
// CSV rows are skipped, logged and counted as parse errors.
func ReadInputs(ctx context.Context, src datasource.Source, job string, inputs []config.Input, logger *zap.Logger) (map[string]*frame.Frame, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dfs := make(map[string]*frame.Frame, len(inputs))
	for _, in := range inputs {
		if _, dup := dfs[in.Name]; dup {
			return nil, fmt.Errorf("input %s: defined twice", in.Name)
		}
		start := time.Now()
		log := logger.With(zap.String("input", in.Name), zap.String("path", in.Path))

		var parseErrors int64
		opt := parser.Options{
			HeaderMap: in.HeaderMap,
			KeepEmpty: in.KeepEmpty,
			Comma:     in.CommaRune(),
			OnError: func(line int, err error) {
				parseErrors++
				log.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			},
		}
		for _, r := range in.Replacements {
			opt.Replacements = append(opt.Replacements, csv.Replacement{From: r.From, To: r.To})
		}

		f, err := parser.Read(ctx, src, in.Path, in.Format, opt, log)
		step(job, "read", start, err)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in.Name, err)
		}
		metrics.RecordRow(job, "read", int64(f.Len()))
		metrics.RecordRow(job, "parse_errors", parseErrors)
		log.Info("input read", zap.Int("rows", f.Len()), zap.Int("columns", len(f.Columns)), zap.Int64("parse_errors", parseErrors))
		dfs[in.Name] = f
	}
	return dfs, nil
}
