package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pudl/internal/catalog"
	"pudl/internal/config"
	"pudl/internal/datasource/file"
	"pudl/internal/metadata"
)

// app carries what the subcommands share once the config is loaded.
type app struct {
	cfgPath       string
	resourcesFile string
	cfg           *config.Config
	logger        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pudl",
		Short: "Harvest, validate and load PUDL resource tables.",
		Long: `pudl builds resource tables from raw input tables as described by a
metadata catalog. Configuration is read from a YAML file (--config) with
environment overrides (PUDL_STORAGE_DSN, PUDL_LOG_LEVEL, ...).`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfgPath
			if path != "" {
				if _, err := os.Stat(path); err != nil && !cmd.Flags().Changed("config") {
					path = ""
				}
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if a.resourcesFile != "" {
				names, err := file.ReadList(a.resourcesFile)
				if err != nil {
					return fmt.Errorf("resources file: %w", err)
				}
				cfg.Resources = append(cfg.Resources, names...)
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "pudl.yaml", "configuration file")
	root.PersistentFlags().StringVar(&a.resourcesFile, "resources-file", "", "file listing resources to select, one per line, added to resources")

	root.AddCommand(
		newValidateCmd(a),
		newDDLCmd(a),
		newDatapackageCmd(a),
		newHarvestCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// newLogger builds the zap logger; format is console or json.
func newLogger(l config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	var zc zap.Config
	switch l.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("log.format: unknown format %q", l.Format)
	}
	zc.Level = level
	return zc.Build()
}

// loadPackage reads the catalog and builds the package of the configured
// resources.
func (a *app) loadPackage() (*metadata.Package, error) {
	if a.cfg.Catalog == "" {
		return nil, fmt.Errorf("catalog is not configured")
	}
	info, err := os.Stat(a.cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var c *catalog.Catalog
	if info.IsDir() {
		c, err = catalog.LoadDir(nil, a.cfg.Catalog)
	} else {
		c, err = catalog.Load(nil, a.cfg.Catalog)
	}
	if err != nil {
		return nil, err
	}
	p := a.cfg.Package
	return c.Package(p.Name, a.cfg.Resources,
		metadata.WithTitle(p.Title),
		metadata.WithDescription(p.Description),
		metadata.WithKeywords(p.Keywords...),
		withHomepage(p.Homepage))
}

func withHomepage(url string) metadata.PackageOption {
	if url == "" {
		return func(*metadata.Package) {}
	}
	return metadata.WithHomepage(url)
}
