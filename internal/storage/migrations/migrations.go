// Package migrations writes schema migrations for a package's tables and
// applies them with golang-migrate.
//
// Files follow golang-migrate's naming, <version>_<name>.up.sql and
// <version>_<name>.down.sql. Up files create tables in dependency order and
// down files drop them in reverse.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"pudl/internal/ddl"
	"pudl/internal/storage"
	_ "pudl/internal/storage/all"
)

var fileName = regexp.MustCompile(`^([0-9]+)_(.*)\.(up|down)\.sql$`)

// Files is the pair of paths written by Generate.
type Files struct {
	Up   string
	Down string
}

// Generate writes the up and down migrations for defs in kind's dialect.
// defs must be in dependency order. A zero version means one past the
// highest version already in dir. Existing files are never overwritten.
func Generate(dir string, version uint, name, kind string, defs []ddl.TableDef) (Files, error) {
	if len(defs) == 0 {
		return Files{}, fmt.Errorf("migrations: no tables to migrate")
	}
	slug := slugify(name)
	if slug == "" {
		return Files{}, fmt.Errorf("migrations: name %q has no usable characters", name)
	}
	d, err := storage.Dialect(kind)
	if err != nil {
		return Files{}, fmt.Errorf("migrations: %w", err)
	}

	var up, down strings.Builder
	for _, def := range defs {
		stmt, err := ddl.BuildCreateTableSQL(def, d)
		if err != nil {
			return Files{}, fmt.Errorf("migrations: %w", err)
		}
		up.WriteString(stmt)
		up.WriteString("\n\n")
	}
	for i := len(defs) - 1; i >= 0; i-- {
		stmt, err := ddl.BuildDropTableSQL(defs[i].Name, d)
		if err != nil {
			return Files{}, fmt.Errorf("migrations: %w", err)
		}
		down.WriteString(stmt)
		down.WriteByte('\n')
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("migrations: %w", err)
	}
	if version == 0 {
		last, err := LatestVersion(dir)
		if err != nil {
			return Files{}, err
		}
		version = last + 1
	}

	base := filepath.Join(dir, fmt.Sprintf("%d_%s", version, slug))
	files := Files{Up: base + ".up.sql", Down: base + ".down.sql"}
	if err := writeNew(files.Up, up.String()); err != nil {
		return Files{}, err
	}
	if err := writeNew(files.Down, down.String()); err != nil {
		_ = os.Remove(files.Up)
		return Files{}, err
	}
	return files, nil
}

// LatestVersion returns the highest migration version in dir, or 0.
func LatestVersion(dir string) (uint, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	var last uint
	for _, e := range entries {
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("migrations: %s: %w", e.Name(), err)
		}
		last = max(last, uint(v))
	}
	return last, nil
}

func writeNew(path, body string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return fmt.Errorf("migrations: write %s: %w", path, err)
	}
	return f.Close()
}

func slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Open opens a database/sql handle for kind with the driver golang-migrate
// expects. MySQL handles allow multi-statement migration files.
func Open(kind, dsn string) (*sql.DB, error) {
	switch kind {
	case "postgres":
		return sql.Open("pgx", dsn)
	case "sqlite":
		return sql.Open("sqlite", dsn)
	case "mssql":
		return sql.Open("sqlserver", dsn)
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("mysql dsn: %w", err)
		}
		cfg.MultiStatements = true
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	}
	return nil, fmt.Errorf("unsupported storage.kind=%s", kind)
}

func driverFor(db *sql.DB, kind string) (database.Driver, error) {
	switch kind {
	case "postgres":
		return postgres.WithInstance(db, &postgres.Config{})
	case "sqlite":
		return sqlite.WithInstance(db, &sqlite.Config{})
	case "mssql":
		return sqlserver.WithInstance(db, &sqlserver.Config{})
	case "mysql":
		return migratemysql.WithInstance(db, &migratemysql.Config{})
	}
	return nil, fmt.Errorf("unsupported storage.kind=%s", kind)
}

// Up applies every pending migration in dir and returns the resulting
// version. It is idempotent: with nothing to apply it returns the current
// version. db is closed when Up returns.
func Up(db *sql.DB, kind, dir string, logger *zap.Logger) (uint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		db.Close()
		return 0, err
	}
	driver, err := driverFor(db, kind)
	if err != nil {
		db.Close()
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), kind, driver)
	if err != nil {
		driver.Close()
		return 0, fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		v, _, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return 0, verr
		}
		logger.Info("No migrations to apply (database up-to-date)", zap.Uint("version", v))
		return v, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	v, dirty, err := m.Version()
	if err != nil {
		return 0, err
	}
	logger.Info("Applied migrations successfully", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return v, nil
}
