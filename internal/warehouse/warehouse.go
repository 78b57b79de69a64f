// Package warehouse runs a harvest: it reads the configured inputs, harvests
// every resource of a package in dependency order, optionally checks
// foreign key values across the results and bulk-loads them into storage.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pudl/internal/config"
	"pudl/internal/datasource/file"
	"pudl/internal/frame"
	"pudl/internal/metadata"
	"pudl/internal/metrics"
	"pudl/internal/storage"
)

const defaultBatchSize = 5000

// ResourceResult is the outcome of one harvested resource.
type ResourceResult struct {
	Resource *metadata.Resource
	Frame    *frame.Frame
	// Report is nil when the resource was not aggregated.
	Report *metadata.Report
	Loaded int64
}

// Valid reports whether the aggregation was within tolerance.
func (r ResourceResult) Valid() bool { return r.Report.Ok() }

// Summary is the outcome of a run. Resources are in dependency order.
type Summary struct {
	Resources  []ResourceResult
	Violations []metadata.ReferenceViolation
}

// Frames returns the harvested frames by resource name.
func (s *Summary) Frames() map[string]*frame.Frame {
	out := make(map[string]*frame.Frame, len(s.Resources))
	for _, r := range s.Resources {
		out[r.Resource.Name] = r.Frame
	}
	return out
}

// Invalid lists the resources whose aggregation exceeded tolerance.
func (s *Summary) Invalid() []string {
	var out []string
	for _, r := range s.Resources {
		if !r.Valid() {
			out = append(out, r.Resource.Name)
		}
	}
	return out
}

// Valid reports whether every resource passed and no foreign key value is
// missing.
func (s *Summary) Valid() bool { return len(s.Invalid()) == 0 && len(s.Violations) == 0 }

// newRepository is a test hook.
var newRepository = storage.New

// Run executes cfg against pkg. Storage is skipped when cfg.Storage.Kind is
// empty.
func Run(ctx context.Context, cfg *config.Config, pkg *metadata.Package, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("job", cfg.Job))
	start := time.Now()

	dfs, err := ReadInputs(ctx, file.NewLocal(cfg.ArchiveRoot), cfg.Job, cfg.Inputs, logger)
	if err != nil {
		return nil, err
	}

	sum, err := Harvest(ctx, pkg, dfs, HarvestOptions{
		Job:     cfg.Job,
		Strict:  cfg.Harvest.Strict,
		Workers: cfg.Harvest.Workers,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Harvest.CheckForeignKeys {
		sum.Violations = metadata.CheckReferences(pkg, sum.Frames(), cfg.Harvest.MaxExamples)
		for _, v := range sum.Violations {
			logger.Warn("foreign key values missing",
				zap.String("resource", v.Resource),
				zap.Stringer("foreign_key", v.ForeignKey),
				zap.Int("rows", v.Missing),
				zap.Any("examples", v.Examples))
		}
	}

	if cfg.Storage.Kind != "" {
		repo, err := newRepository(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		defer repo.Close()
		if err := Load(ctx, repo, pkg, sum, LoadOptions{
			Job:        cfg.Job,
			Kind:       cfg.Storage.Kind,
			BatchSize:  cfg.Storage.BatchSize,
			AutoCreate: cfg.Storage.AutoCreate,
		}, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("run complete",
		zap.Int("resources", len(sum.Resources)),
		zap.Strings("invalid", sum.Invalid()),
		zap.Int("reference_violations", len(sum.Violations)),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return sum, nil
}

func step(job, name string, start time.Time, err error) {
	metrics.RecordStep(job, name, err, time.Since(start))
}
