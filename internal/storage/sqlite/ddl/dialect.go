// Package ddl is the SQLite DDL dialect.
//
// SQLite has type affinities rather than strict types, so the mapping is
// small: integers and booleans are INTEGER, floats REAL, everything else
// TEXT (dates are ISO-8601 strings).
package ddl

import (
	"fmt"
	"strings"

	gddl "pudl/internal/ddl"
)

// Dialect renders SQLite DDL.
type Dialect struct{}

var _ gddl.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (Dialect) MapType(t gddl.Type) (string, error) {
	switch t {
	case gddl.TypeInteger, gddl.TypeBoolean:
		return "INTEGER", nil
	case gddl.TypeFloat:
		return "REAL", nil
	case gddl.TypeText, gddl.TypeDate, gddl.TypeTimestamp:
		return "TEXT", nil
	}
	return "", fmt.Errorf("sqlite: unsupported column type %q", t)
}

func (Dialect) WrapCreate(_, body string) string {
	return strings.Replace(body, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1) + ";"
}

func (Dialect) DropTable(fqn string) string { return "DROP TABLE IF EXISTS " + fqn + ";" }

func (Dialect) MaxIdentLen() int { return 0 }
