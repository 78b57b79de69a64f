package ddl

// Type is a dialect-neutral column type. Dialects map it to concrete SQL.
type Type string

const (
	TypeText      Type = "text"
	TypeInteger   Type = "integer"
	TypeFloat     Type = "float"
	TypeBoolean   Type = "boolean"
	TypeDate      Type = "date"
	TypeTimestamp Type = "timestamp"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - Type: logical type mapped by the dialect
//   - SQLType: optional raw SQL type that bypasses the dialect mapping
//   - Nullable: whether NULL is allowed (primary key columns never are)
//   - Unique: adds a UNIQUE column constraint
//   - Enum: closed set of allowed values, rendered as a CHECK constraint
//   - Comment: column description, rendered only where the dialect supports it
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name     string
	Type     Type
	SQLType  string
	Nullable bool
	Unique   bool
	Enum     []string
	Comment  string
	Default  string
}

// ForeignKeyDef references columns of another table.
type ForeignKeyDef struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// TableDef is a table name, its ordered columns and table constraints. Name
// may be schema-qualified in dotted form ("schema.table").
type TableDef struct {
	Name        string
	Columns     []ColumnDef
	PrimaryKey  []string
	ForeignKeys []ForeignKeyDef
	Comment     string
}

// Column returns the named column definition.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
