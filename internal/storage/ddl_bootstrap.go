package storage

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pudl/internal/ddl"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers (or replaces) the DDL dialect for kind. Backends call
// it from init next to Register.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// Dialect returns the DDL dialect registered for kind.
func Dialect(kind string) (ddl.Dialect, error) {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}

// BuildDDL renders the create-if-missing statement for def in kind's dialect.
func BuildDDL(kind string, def ddl.TableDef) (string, error) {
	d, err := Dialect(kind)
	if err != nil {
		return "", err
	}
	return ddl.BuildCreateTableSQL(def, d)
}

// EnsureTables creates every table in defs, in order, through repo.Exec.
// Callers pass defs in dependency order so foreign keys resolve.
func EnsureTables(ctx context.Context, kind string, repo Repository, defs []ddl.TableDef, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, def := range defs {
		stmt, err := BuildDDL(kind, def)
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", def.Name, err)
		}
		logger.Debug("table ensured", zap.String("kind", kind), zap.String("table", def.Name))
	}
	return nil
}
