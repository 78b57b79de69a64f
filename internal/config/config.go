// Package config defines the run configuration of the pudl binary.
//
// Configuration is read from a YAML file (pudl.yaml) with environment
// overrides through cleanenv. Secrets such as storage DSNs are usually given
// in the environment only:
//
//	job: ferc1
//	catalog: configs/metadata
//	resources: [utilities_ferc1, plants_ferc1]
//	archive_root: /data/ferc1
//	inputs:
//	  - {name: f1_respondent_id, path: f1_respondent_id.csv}
//	  - {name: f1_steam, path: F1_STEAM.DBF, header_map: {respondent_id: utility_id_ferc1}}
//	storage: {kind: sqlite, auto_create: true}
//
//	PUDL_STORAGE_DSN=file:pudl.sqlite pudl harvest -c pudl.yaml
package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level object decoded from pudl.yaml.
type Config struct {
	// Job labels metrics and log lines of the run.
	Job string `yaml:"job" env:"PUDL_JOB" env-default:"pudl"`

	// Catalog is a catalog YAML file or a directory of them.
	Catalog string `yaml:"catalog" env:"PUDL_CATALOG"`

	Package Package `yaml:"package"`

	// Resources selects the catalog resources of the run. Empty means all.
	Resources []string `yaml:"resources" env:"PUDL_RESOURCES"`

	// ArchiveRoot is the directory input paths are relative to.
	ArchiveRoot string `yaml:"archive_root" env:"PUDL_ARCHIVE_ROOT" env-default:"."`

	Inputs     []Input    `yaml:"inputs"`
	Harvest    Harvest    `yaml:"harvest"`
	Storage    Storage    `yaml:"storage"`
	Migrations Migrations `yaml:"migrations"`
	Metrics    Metrics    `yaml:"metrics"`
	Log        Log        `yaml:"log"`
}

// Package carries the descriptor metadata of the data package.
type Package struct {
	Name        string   `yaml:"name" env:"PUDL_PACKAGE_NAME" env-default:"pudl"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Homepage    string   `yaml:"homepage"`
}

// Input is one raw table read into a named frame. Resources harvest from
// every input; a resource without harvesting reads the input of its own
// name.
type Input struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // csv or dbf, detected from the extension when empty
	// HeaderMap renames raw or normalized column names.
	HeaderMap map[string]string `yaml:"header_map"`
	// Comma is the CSV delimiter, a single character.
	Comma     string `yaml:"comma"`
	KeepEmpty bool   `yaml:"keep_empty"`
	// Replacements fix broken quoting before the CSV reader sees the bytes.
	Replacements []Replacement `yaml:"replacements"`
}

// Replacement rewrites the byte sequence From to To.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// CommaRune returns the configured delimiter, or 0 for the reader default.
func (in Input) CommaRune() rune {
	r, _ := utf8.DecodeRuneInString(in.Comma)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// Harvest controls aggregation.
type Harvest struct {
	// Strict fails the run on the first failed group aggregation.
	Strict bool `yaml:"strict" env:"PUDL_HARVEST_STRICT"`
	// CheckForeignKeys compares harvested frames along foreign keys.
	CheckForeignKeys bool `yaml:"check_foreign_keys" env:"PUDL_HARVEST_CHECK_FOREIGN_KEYS"`
	// Workers bounds the fields aggregated concurrently; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" env:"PUDL_HARVEST_WORKERS"`
	// MaxExamples bounds the missing key tuples kept per foreign key.
	MaxExamples int `yaml:"max_examples" env-default:"5"`
}

// Storage selects the database harvested resources are loaded into. An
// empty Kind skips loading.
type Storage struct {
	Kind      string `yaml:"kind" env:"PUDL_STORAGE_KIND"`
	DSN       string `yaml:"dsn" env:"PUDL_STORAGE_DSN"`
	BatchSize int    `yaml:"batch_size" env:"PUDL_STORAGE_BATCH_SIZE" env-default:"5000"`
	// AutoCreate creates missing tables before loading.
	AutoCreate bool `yaml:"auto_create" env:"PUDL_STORAGE_AUTO_CREATE"`
}

// Migrations configures the migrate subcommands.
type Migrations struct {
	Dir string `yaml:"dir" env:"PUDL_MIGRATIONS_DIR" env-default:"migrations"`
	// Version of a new migration; 0 means one past the latest.
	Version uint   `yaml:"version"`
	Name    string `yaml:"name" env-default:"create tables"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string   `yaml:"backend" env:"PUDL_METRICS_BACKEND" env-default:"none"`
	PushgatewayURL string   `yaml:"pushgateway_url" env:"PUDL_PUSHGATEWAY_URL"`
	DatadogAddr    string   `yaml:"datadog_addr" env:"DD_DOGSTATSD_ADDR"`
	Namespace      string   `yaml:"namespace" env:"PUDL_METRICS_NAMESPACE"`
	Tags           []string `yaml:"tags" env:"PUDL_METRICS_TAGS"`
}

// Log configures the zap logger of the binary.
type Log struct {
	Level  string `yaml:"level" env:"PUDL_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"PUDL_LOG_FORMAT" env-default:"console"`
}

// Load reads path with environment overrides. With an empty path only the
// environment and defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return &cfg, nil
}
