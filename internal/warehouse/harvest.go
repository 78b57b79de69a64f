package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pudl/internal/frame"
	"pudl/internal/metadata"
	"pudl/internal/metrics"
)

// HarvestOptions configures Harvest.
type HarvestOptions struct {
	Job     string
	Strict  bool
	Workers int
}

// Harvest harvests every resource of pkg from dfs in dependency order.
// Failed groups are reported, not returned, unless Strict is set.
func Harvest(ctx context.Context, pkg *metadata.Package, dfs map[string]*frame.Frame, opt HarvestOptions, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	order, err := pkg.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	hopts := []metadata.Option{metadata.WithWorkers(opt.Workers)}
	if opt.Strict {
		hopts = append(hopts, metadata.WithStrict())
	}

	sum := &Summary{Resources: make([]ResourceResult, 0, len(order))}
	for _, r := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		f, report, err := r.Harvest(dfs, hopts...)
		step(opt.Job, "harvest", start, err)
		if err != nil {
			return nil, fmt.Errorf("harvest %s: %w", r.Name, err)
		}
		metrics.RecordHarvest(opt.Job, r.Name, report)

		fields := []zap.Field{zap.String("resource", r.Name), zap.Int("rows", f.Len())}
		if report != nil {
			fields = append(fields, zap.Bool("valid", report.Valid), zap.Int("invalid_groups", report.InvalidGroups()))
		}
		if !report.Ok() {
			logger.Warn("aggregation exceeded tolerance", fields...)
		} else {
			logger.Info("resource harvested", fields...)
		}
		sum.Resources = append(sum.Resources, ResourceResult{Resource: r, Frame: f, Report: report})
	}
	return sum, nil
}
