// Package ddl is the SQL Server DDL dialect.
//
// Text columns are NVARCHAR(MAX) except key columns, which SQL Server cannot
// index at that width; those are NVARCHAR(450) (900 bytes).
package ddl

import (
	"fmt"
	"strings"

	gddl "pudl/internal/ddl"
)

// Dialect renders SQL Server DDL.
type Dialect struct{}

var (
	_ gddl.Dialect       = Dialect{}
	_ gddl.KeyTypeMapper = Dialect{}
)

func (Dialect) Name() string { return "mssql" }

// QuoteIdent uses [brackets], escaping ].
func (Dialect) QuoteIdent(id string) string {
	return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]`
}

func (Dialect) MapType(t gddl.Type) (string, error) {
	switch t {
	case gddl.TypeText:
		return "NVARCHAR(MAX)", nil
	case gddl.TypeInteger:
		return "BIGINT", nil
	case gddl.TypeFloat:
		return "FLOAT", nil
	case gddl.TypeBoolean:
		return "BIT", nil
	case gddl.TypeDate:
		return "DATE", nil
	case gddl.TypeTimestamp:
		return "DATETIME2", nil
	}
	return "", fmt.Errorf("mssql: unsupported column type %q", t)
}

func (d Dialect) MapKeyType(t gddl.Type) (string, error) {
	if t == gddl.TypeText {
		return "NVARCHAR(450)", nil
	}
	return d.MapType(t)
}

// WrapCreate guards the statement with OBJECT_ID since SQL Server has no
// CREATE TABLE IF NOT EXISTS.
func (Dialect) WrapCreate(fqn, body string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n%s;\nEND;",
		strings.ReplaceAll(fqn, "'", "''"), body)
}

func (Dialect) DropTable(fqn string) string { return "DROP TABLE IF EXISTS " + fqn + ";" }

func (Dialect) MaxIdentLen() int { return 128 }
