// Package ddl is the Postgres DDL dialect.
package ddl

import (
	"fmt"
	"strings"

	gddl "pudl/internal/ddl"
)

// Dialect renders Postgres DDL.
//
//	text      -> TEXT
//	integer   -> BIGINT
//	float     -> DOUBLE PRECISION
//	boolean   -> BOOLEAN
//	date      -> DATE
//	timestamp -> TIMESTAMPTZ
type Dialect struct{}

var _ gddl.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (Dialect) MapType(t gddl.Type) (string, error) {
	switch t {
	case gddl.TypeText:
		return "TEXT", nil
	case gddl.TypeInteger:
		return "BIGINT", nil
	case gddl.TypeFloat:
		return "DOUBLE PRECISION", nil
	case gddl.TypeBoolean:
		return "BOOLEAN", nil
	case gddl.TypeDate:
		return "DATE", nil
	case gddl.TypeTimestamp:
		return "TIMESTAMPTZ", nil
	}
	return "", fmt.Errorf("postgres: unsupported column type %q", t)
}

func (Dialect) WrapCreate(_, body string) string {
	return strings.Replace(body, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1) + ";"
}

func (Dialect) DropTable(fqn string) string { return "DROP TABLE IF EXISTS " + fqn + ";" }

// MaxIdentLen is NAMEDATALEN-1.
func (Dialect) MaxIdentLen() int { return 63 }
