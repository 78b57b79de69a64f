package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pudl/internal/config"
	"pudl/internal/metrics"
	"pudl/internal/metrics/datadog"
	"pudl/internal/metrics/prompush"
	"pudl/internal/storage"
	_ "pudl/internal/storage/all"
	"pudl/internal/storage/migrations"
	"pudl/internal/warehouse"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Lint the configuration and check the catalog.",
		Long: `validate reports every configuration issue, then loads the catalog and
builds the package, which checks the schemas, foreign keys and dependency
order of the selected resources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(*a.cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			pkg, err := a.loadPackage()
			if err != nil {
				return err
			}
			if _, err := pkg.TopologicalOrder(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %d resources\n", len(pkg.Resources))
			return nil
		},
	}
}

func newDDLCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print CREATE TABLE statements for the package.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind == "" {
				kind = a.cfg.Storage.Kind
			}
			if kind == "" {
				kind = "sqlite"
			}
			pkg, err := a.loadPackage()
			if err != nil {
				return err
			}
			defs, err := pkg.TableDefs()
			if err != nil {
				return err
			}
			for _, def := range defs {
				stmt, err := storage.BuildDDL(kind, def)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", stmt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "SQL dialect: "+strings.Join(storage.ListKinds(), ", ")+" (default storage.kind, else sqlite)")
	return cmd
}

func newDatapackageCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "datapackage",
		Short: "Write the tabular data package descriptor as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pkg, err := a.loadPackage()
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(pkg, "", "  ")
			if err != nil {
				return err
			}
			b = append(b, '\n')
			if out == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newHarvestCmd(a *app) *cobra.Command {
	var allowInvalid bool
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest the package resources and load them into storage.",
		Long: `harvest reads every configured input, harvests the selected resources in
dependency order and, when storage.kind is set, loads them into the database.
It fails when an aggregation exceeds its tolerance or foreign key values are
missing, unless --allow-invalid is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if issues := config.Validate(*a.cfg); config.HasErrors(issues) {
				for _, iss := range issues {
					a.logger.Error("config issue", zap.String("path", iss.Path), zap.String("message", iss.Message))
				}
				return fmt.Errorf("configuration is invalid")
			}
			pkg, err := a.loadPackage()
			if err != nil {
				return err
			}
			if err := a.setupMetrics(); err != nil {
				return err
			}
			defer func() {
				if err := metrics.Flush(); err != nil {
					a.logger.Warn("metrics flush failed", zap.Error(err))
				}
			}()

			sum, err := warehouse.Run(cmd.Context(), a.cfg, pkg, a.logger)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range sum.Resources {
				status := "ok"
				if !r.Valid() {
					status = "INVALID"
				}
				fmt.Fprintf(w, "%-40s rows=%-8d loaded=%-8d %s\n", r.Resource.Name, r.Frame.Len(), r.Loaded, status)
			}
			for _, v := range sum.Violations {
				fmt.Fprintf(w, "foreign key: %s\n", v)
			}
			if !sum.Valid() && !allowInvalid {
				return fmt.Errorf("%d invalid resources, %d foreign key violations", len(sum.Invalid()), len(sum.Violations))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowInvalid, "allow-invalid", false, "succeed even when reports are invalid")
	return cmd
}

// setupMetrics installs the configured metrics backend.
func (a *app) setupMetrics() error {
	m := a.cfg.Metrics
	switch m.Backend {
	case "", "none":
		return nil
	case "prometheus":
		b, err := prompush.NewBackend(a.cfg.Job, m.PushgatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: m.Namespace, GlobalTags: m.Tags})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	default:
		return fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}
	a.logger.Info("metrics enabled", zap.String("backend", m.Backend))
	return nil
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Write and apply schema migrations.",
	}

	var version uint
	var name string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Write up and down migrations creating the package tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind := a.cfg.Storage.Kind
			if kind == "" {
				return fmt.Errorf("storage.kind is required to pick the SQL dialect")
			}
			if !cmd.Flags().Changed("version") {
				version = a.cfg.Migrations.Version
			}
			if name == "" {
				name = a.cfg.Migrations.Name
			}
			pkg, err := a.loadPackage()
			if err != nil {
				return err
			}
			defs, err := pkg.TableDefs()
			if err != nil {
				return err
			}
			files, err := migrations.Generate(a.cfg.Migrations.Dir, version, name, kind, defs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), files.Up)
			fmt.Fprintln(cmd.OutOrStdout(), files.Down)
			return nil
		},
	}
	newCmd.Flags().UintVar(&version, "version", 0, "migration version (default one past the latest)")
	newCmd.Flags().StringVar(&name, "name", "", "migration name (default migrations.name)")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to storage.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.cfg.Storage
			if s.Kind == "" || s.DSN == "" {
				return fmt.Errorf("storage.kind and storage.dsn are required")
			}
			db, err := migrations.Open(s.Kind, s.DSN)
			if err != nil {
				return err
			}
			v, err := migrations.Up(db, s.Kind, a.cfg.Migrations.Dir, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}

	cmd.AddCommand(newCmd, upCmd)
	return cmd
}
