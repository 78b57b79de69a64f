// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// CREATE TABLE and DROP TABLE statements from it through a Dialect.
//
// The package owns statement layout and validation. Dialects (see
// internal/storage/<kind>/ddl) own identifier quoting, type names and the
// create-if-missing guard. Constraint names follow one convention across
// backends:
//
//	pk_<table>
//	fk_<table>_<col1>_<col2>_<reftable>
//	ck_<table>_<col>_enum
//
// Names longer than the dialect allows are truncated and suffixed with a
// short hash so they stay unique and stable.
package ddl

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Dialect adapts rendering to one SQL backend.
type Dialect interface {
	// Name identifies the dialect in error messages (e.g. "postgres").
	Name() string
	// QuoteIdent quotes a single identifier segment.
	QuoteIdent(id string) string
	// MapType returns the SQL type for a logical column type.
	MapType(t Type) (string, error)
	// WrapCreate turns "CREATE TABLE <name> (<body>)" into the dialect's
	// idempotent form. fqn is already quoted.
	WrapCreate(fqn, body string) string
	// DropTable renders an idempotent DROP for an already quoted name.
	DropTable(fqn string) string
	// MaxIdentLen is the identifier length limit, or 0 for none.
	MaxIdentLen() int
}

// Commenter is implemented by dialects with inline column comments.
type Commenter interface {
	ColumnComment(text string) string
}

// KeyTypeMapper is implemented by dialects whose key columns (primary key,
// unique or foreign key) need a different SQL type, such as a bounded
// VARCHAR where TEXT cannot be indexed.
type KeyTypeMapper interface {
	MapKeyType(t Type) (string, error)
}

// QuoteFQN quotes each non-empty dotted segment of name with d.
func QuoteFQN(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ConstraintName joins parts with "_" and fits the result into max bytes.
func ConstraintName(max int, parts ...string) string {
	name := strings.Join(parts, "_")
	name = strings.ReplaceAll(name, ".", "_")
	if max <= 0 || len(name) <= max {
		return name
	}
	sum := fmt.Sprintf("%08x", uint32(xxh3.HashString(name)))
	return name[:max-len(sum)-1] + "_" + sum
}

// BuildCreateTableSQL renders CREATE TABLE for t in dialect d.
//
// Rules:
//
//   - t.Name must be non-empty and t must have at least one column.
//   - Column names must be non-empty and unique.
//   - Every primary key, foreign key and enum column must exist.
//   - A column is rendered as:
//
//     <name> <type> [NOT NULL] [UNIQUE] [DEFAULT <default>] [<comment>]
//
//     Primary key columns are always NOT NULL.
//
//   - Table constraints follow the columns in this order: primary key, enum
//     checks, foreign keys.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %s: at least one column is required", name)
	}
	fqn := QuoteFQN(d, name)
	base := tableBase(name)
	max := d.MaxIdentLen()

	pk := make(map[string]struct{}, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		pk[c] = struct{}{}
	}
	keyed := make(map[string]struct{}, len(pk))
	for c := range pk {
		keyed[c] = struct{}{}
	}
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			keyed[c] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(t.Columns))
	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	var checks []string

	for _, c := range t.Columns {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		if _, dup := seen[cname]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", cname, name)
		}
		seen[cname] = struct{}{}

		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			mapped, err := mapColumnType(d, c, keyed)
			if err != nil {
				return "", fmt.Errorf("ddl: column %s: %w", cname, err)
			}
			typ = mapped
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(cname))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		_, isPK := pk[cname]
		if !c.Nullable || isPK {
			sb.WriteString(" NOT NULL")
		}
		if c.Unique && !(isPK && len(t.PrimaryKey) == 1) {
			sb.WriteString(" UNIQUE")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		if cm, ok := d.(Commenter); ok && strings.TrimSpace(c.Comment) != "" {
			sb.WriteByte(' ')
			sb.WriteString(cm.ColumnComment(c.Comment))
		}
		lines = append(lines, sb.String())

		if len(c.Enum) > 0 {
			vals := make([]string, len(c.Enum))
			for i, v := range c.Enum {
				vals[i] = QuoteLiteral(v)
			}
			checks = append(checks, fmt.Sprintf("CONSTRAINT %s CHECK (%s IN (%s))",
				d.QuoteIdent(ConstraintName(max, "ck", base, cname, "enum")),
				d.QuoteIdent(cname), strings.Join(vals, ", ")))
		}
	}

	if len(t.PrimaryKey) > 0 {
		cols, err := quoteColumns(d, t.PrimaryKey, seen, name, "primary key")
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)",
			d.QuoteIdent(ConstraintName(max, "pk", base)), cols))
	}
	lines = append(lines, checks...)

	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
			return "", fmt.Errorf("ddl: table %s: foreign key to %s has %d columns and %d reference columns",
				name, fk.RefTable, len(fk.Columns), len(fk.RefColumns))
		}
		if strings.TrimSpace(fk.RefTable) == "" {
			return "", fmt.Errorf("ddl: table %s: foreign key without reference table", name)
		}
		cols, err := quoteColumns(d, fk.Columns, seen, name, "foreign key")
		if err != nil {
			return "", err
		}
		refs := make([]string, len(fk.RefColumns))
		for i, c := range fk.RefColumns {
			refs[i] = d.QuoteIdent(c)
		}
		parts := append([]string{"fk", base}, fk.Columns...)
		parts = append(parts, tableBase(fk.RefTable))
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdent(ConstraintName(max, parts...)), cols,
			QuoteFQN(d, fk.RefTable), strings.Join(refs, ", ")))
	}

	body := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", fqn, strings.Join(lines, ",\n  "))
	return d.WrapCreate(fqn, body), nil
}

// BuildDropTableSQL renders an idempotent DROP TABLE for name.
func BuildDropTableSQL(name string, d Dialect) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	return d.DropTable(QuoteFQN(d, name)), nil
}

func mapColumnType(d Dialect, c ColumnDef, keyed map[string]struct{}) (string, error) {
	if km, ok := d.(KeyTypeMapper); ok {
		if _, isKey := keyed[c.Name]; isKey || c.Unique {
			return km.MapKeyType(c.Type)
		}
	}
	return d.MapType(c.Type)
}

func quoteColumns(d Dialect, cols []string, known map[string]struct{}, table, what string) (string, error) {
	out := make([]string, len(cols))
	for i, c := range cols {
		if _, ok := known[c]; !ok {
			return "", fmt.Errorf("ddl: table %s: %s column %s is not defined", table, what, c)
		}
		out[i] = d.QuoteIdent(c)
	}
	return strings.Join(out, ", "), nil
}

// tableBase strips any schema qualifier from a dotted table name.
func tableBase(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
