// Package ddl is the MySQL DDL dialect. Column descriptions become inline
// COMMENT clauses.
package ddl

import (
	"fmt"
	"strings"

	gddl "pudl/internal/ddl"
)

// Dialect renders MySQL (8.0.16+, for CHECK) DDL.
type Dialect struct{}

var (
	_ gddl.Dialect       = Dialect{}
	_ gddl.Commenter     = Dialect{}
	_ gddl.KeyTypeMapper = Dialect{}
)

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

func (Dialect) MapType(t gddl.Type) (string, error) {
	switch t {
	case gddl.TypeText:
		return "TEXT", nil
	case gddl.TypeInteger:
		return "BIGINT", nil
	case gddl.TypeFloat:
		return "DOUBLE", nil
	case gddl.TypeBoolean:
		return "BOOLEAN", nil
	case gddl.TypeDate:
		return "DATE", nil
	case gddl.TypeTimestamp:
		return "DATETIME(6)", nil
	}
	return "", fmt.Errorf("mysql: unsupported column type %q", t)
}

// MapKeyType bounds text keys; TEXT columns cannot be indexed without a
// prefix length.
func (d Dialect) MapKeyType(t gddl.Type) (string, error) {
	if t == gddl.TypeText {
		return "VARCHAR(255)", nil
	}
	return d.MapType(t)
}

func (Dialect) ColumnComment(text string) string {
	return "COMMENT " + gddl.QuoteLiteral(text)
}

func (Dialect) WrapCreate(_, body string) string {
	return strings.Replace(body, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1) + ";"
}

func (Dialect) DropTable(fqn string) string { return "DROP TABLE IF EXISTS " + fqn + ";" }

func (Dialect) MaxIdentLen() int { return 64 }
