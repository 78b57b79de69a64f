package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pudl/internal/metadata"
	"pudl/internal/metrics"
	"pudl/internal/storage"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Job  string
	Kind string
	// BatchSize defaults to 5000.
	BatchSize int
	// AutoCreate creates missing tables first.
	AutoCreate bool
}

// Load writes the harvested frames of sum into repo in dependency order so
// foreign keys hold as rows arrive. Loaded counts are set on sum.
func Load(ctx context.Context, repo storage.Repository, pkg *metadata.Package, sum *Summary, opt LoadOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := opt.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	if opt.AutoCreate {
		start := time.Now()
		defs, err := pkg.TableDefs()
		if err == nil {
			err = storage.EnsureTables(ctx, opt.Kind, repo, defs, logger)
		}
		step(opt.Job, "create_tables", start, err)
		if err != nil {
			return err
		}
	}

	for i := range sum.Resources {
		res := &sum.Resources[i]
		if res.Frame.Len() == 0 {
			continue
		}
		start := time.Now()
		rows, err := res.Resource.Rows(res.Frame)
		if err != nil {
			step(opt.Job, "load", start, err)
			return err
		}
		n, err := storage.LoadTable(ctx, repo, res.Resource.Name, res.Resource.Schema.FieldNames(), rows, batch, logger)
		step(opt.Job, "load", start, err)
		if err != nil {
			return fmt.Errorf("load %s: %w", res.Resource.Name, err)
		}
		res.Loaded = n
		metrics.RecordRow(opt.Job, "loaded", n)
		metrics.RecordBatches(opt.Job, int64((len(rows)+batch-1)/batch))
	}
	return nil
}
