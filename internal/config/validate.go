package config

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single lint finding. Path is a dotted path into the config,
// e.g. "storage.dsn" or "inputs[1].path".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	storageKinds   = []string{"mssql", "mysql", "postgres", "sqlite"}
	metricBackends = []string{"none", "prometheus", "datadog"}
	inputFormats   = []string{"", "csv", "dbf"}
	logFormats     = []string{"console", "json"}
)

// Validate lints cfg and returns every finding. It does not touch the
// filesystem or the network.
func Validate(cfg Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and logs of the run")
	}
	if strings.TrimSpace(cfg.Catalog) == "" {
		add(SeverityError, "catalog", "catalog must name a catalog file or directory")
	}
	if strings.TrimSpace(cfg.Package.Name) == "" {
		add(SeverityError, "package.name", "package.name must not be empty")
	}
	seen := map[string]bool{}
	for i, r := range cfg.Resources {
		if seen[r] {
			add(SeverityWarning, fmt.Sprintf("resources[%d]", i), "resource %q is listed twice", r)
		}
		seen[r] = true
	}

	validateInputs(cfg.Inputs, add)
	validateHarvest(cfg.Harvest, add)
	validateStorage(cfg.Storage, add)
	validateMetrics(cfg.Metrics, add)
	validateLog(cfg.Log, add)
	return issues
}

type addFunc func(sev IssueSeverity, path, format string, args ...any)

func validateInputs(inputs []Input, add addFunc) {
	if len(inputs) == 0 {
		add(SeverityWarning, "inputs", "no inputs configured; every resource will be empty")
		return
	}
	names := map[string]int{}
	for i, in := range inputs {
		path := fmt.Sprintf("inputs[%d]", i)
		if strings.TrimSpace(in.Name) == "" {
			add(SeverityError, path+".name", "input name must not be empty")
		} else if j, dup := names[in.Name]; dup {
			add(SeverityError, path+".name", "input %q is already defined by inputs[%d]", in.Name, j)
		} else {
			names[in.Name] = i
		}
		if strings.TrimSpace(in.Path) == "" {
			add(SeverityError, path+".path", "input path must not be empty")
		}
		if !slices.Contains(inputFormats, in.Format) {
			add(SeverityError, path+".format", "unknown format %q; want csv or dbf", in.Format)
		}
		if in.Comma != "" && utf8.RuneCountInString(in.Comma) != 1 {
			add(SeverityError, path+".comma", "comma must be a single character, got %q", in.Comma)
		}
		if in.Format == "dbf" && (in.Comma != "" || len(in.Replacements) > 0) {
			add(SeverityWarning, path, "comma and replacements are ignored for dbf inputs")
		}
		for j, rep := range in.Replacements {
			if rep.From == "" {
				add(SeverityError, fmt.Sprintf("%s.replacements[%d].from", path, j), "replacement needs a non-empty from")
			}
		}
	}
}

func validateHarvest(h Harvest, add addFunc) {
	if h.Workers < 0 {
		add(SeverityError, "harvest.workers", "workers must not be negative")
	}
	if h.MaxExamples < 0 {
		add(SeverityError, "harvest.max_examples", "max_examples must not be negative")
	}
}

func validateStorage(s Storage, add addFunc) {
	if s.Kind == "" {
		if s.DSN != "" {
			add(SeverityError, "storage.kind", "storage.dsn is set but storage.kind is empty")
		}
		return
	}
	if !slices.Contains(storageKinds, s.Kind) {
		add(SeverityError, "storage.kind", "unknown storage kind %q; want one of %s", s.Kind, strings.Join(storageKinds, ", "))
	}
	if strings.TrimSpace(s.DSN) == "" {
		add(SeverityError, "storage.dsn", "storage.dsn must not be empty")
	}
	if s.BatchSize <= 0 {
		add(SeverityWarning, "storage.batch_size", "batch_size=%d; the loader default is used", s.BatchSize)
	}
}

func validateMetrics(m Metrics, add addFunc) {
	backend := m.Backend
	if backend == "" {
		backend = "none"
	}
	if !slices.Contains(metricBackends, backend) {
		add(SeverityError, "metrics.backend", "unknown metrics backend %q; want none, prometheus or datadog", m.Backend)
		return
	}
	switch backend {
	case "prometheus":
		if m.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "prometheus backend requires pushgateway_url")
		}
	case "datadog":
		if m.DatadogAddr == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr")
		}
	}
	for i, tag := range m.Tags {
		if !strings.Contains(tag, ":") {
			add(SeverityWarning, fmt.Sprintf("metrics.tags[%d]", i), "tag %q is not in key:value form", tag)
		}
	}
}

func validateLog(l Log, add addFunc) {
	if l.Level != "" {
		if _, err := zapcore.ParseLevel(l.Level); err != nil {
			add(SeverityError, "log.level", "%v", err)
		}
	}
	if l.Format != "" && !slices.Contains(logFormats, l.Format) {
		add(SeverityError, "log.format", "unknown log format %q; want console or json", l.Format)
	}
}
