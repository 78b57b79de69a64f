package ddl

import (
	"fmt"
	"strings"
	"testing"
)

// plainDialect is a minimal Dialect used to check statement layout without
// depending on a backend package.
type plainDialect struct{ max int }

func (plainDialect) Name() string               { return "plain" }
func (plainDialect) QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
func (plainDialect) MapType(t Type) (string, error) {
	switch t {
	case TypeText:
		return "TEXT", nil
	case TypeInteger:
		return "INTEGER", nil
	case TypeFloat:
		return "REAL", nil
	case TypeBoolean:
		return "BOOLEAN", nil
	case TypeDate:
		return "DATE", nil
	}
	return "", fmt.Errorf("unsupported type %q", t)
}
func (plainDialect) WrapCreate(fqn, body string) string { return body + ";" }
func (plainDialect) DropTable(fqn string) string        { return "DROP TABLE " + fqn + ";" }
func (d plainDialect) MaxIdentLen() int                 { return d.max }

// TestBuildCreateTableSQL verifies statement layout and the errors surfaced
// for invalid definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty name returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Type: TypeInteger}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{Name: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "empty column name returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Type: TypeText}}},
			errContains: "column with empty name",
		},
		{
			name: "duplicate column returns error",
			def: TableDef{Name: "t", Columns: []ColumnDef{
				{Name: "a", Type: TypeText}, {Name: "a", Type: TypeText},
			}},
			errContains: "duplicate column a",
		},
		{
			name:        "unknown type returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: "a", Type: "blob"}}},
			errContains: `unsupported type "blob"`,
		},
		{
			name: "primary key column must exist",
			def: TableDef{Name: "t", Columns: []ColumnDef{{Name: "a", Type: TypeText}},
				PrimaryKey: []string{"b"}},
			errContains: "primary key column b is not defined",
		},
		{
			name: "foreign key shape is checked",
			def: TableDef{Name: "t", Columns: []ColumnDef{{Name: "a", Type: TypeText}},
				ForeignKeys: []ForeignKeyDef{{Columns: []string{"a"}, RefTable: "r"}}},
			errContains: "1 columns and 0 reference columns",
		},
		{
			name: "full table",
			def: TableDef{
				Name: "plants",
				Columns: []ColumnDef{
					{Name: "utility_id", Type: TypeInteger, Nullable: true},
					{Name: "plant_name", Type: TypeText, Nullable: true},
					{Name: "state", Type: TypeText, Nullable: true, Enum: []string{"CO", "O'K"}},
					{Name: "capacity_mw", Type: TypeFloat, Nullable: true, Unique: true},
				},
				PrimaryKey: []string{"utility_id", "plant_name"},
				ForeignKeys: []ForeignKeyDef{
					{Columns: []string{"utility_id"}, RefTable: "utilities", RefColumns: []string{"utility_id"}},
				},
			},
			wantSQL: "CREATE TABLE \"plants\" (\n" +
				"  \"utility_id\" INTEGER NOT NULL,\n" +
				"  \"plant_name\" TEXT NOT NULL,\n" +
				"  \"state\" TEXT,\n" +
				"  \"capacity_mw\" REAL UNIQUE,\n" +
				"  CONSTRAINT \"pk_plants\" PRIMARY KEY (\"utility_id\", \"plant_name\"),\n" +
				"  CONSTRAINT \"ck_plants_state_enum\" CHECK (\"state\" IN ('CO', 'O''K')),\n" +
				"  CONSTRAINT \"fk_plants_utility_id_utilities\" FOREIGN KEY (\"utility_id\") REFERENCES \"utilities\" (\"utility_id\")\n" +
				");",
		},
		{
			name: "raw SQL type and default",
			def: TableDef{Name: "main.t", Columns: []ColumnDef{
				{Name: "a", SQLType: "VARCHAR(3)", Default: "'x'"},
			}},
			wantSQL: "CREATE TABLE \"main\".\"t\" (\n  \"a\" VARCHAR(3) NOT NULL DEFAULT 'x'\n);",
		},
		{
			name: "single column primary key drops redundant UNIQUE",
			def: TableDef{Name: "t", Columns: []ColumnDef{
				{Name: "id", Type: TypeInteger, Unique: true},
			}, PrimaryKey: []string{"id"}},
			wantSQL: "CREATE TABLE \"t\" (\n  \"id\" INTEGER NOT NULL,\n  CONSTRAINT \"pk_t\" PRIMARY KEY (\"id\")\n);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def, plainDialect{})
			if tt.errContains != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil (sql=%q)", tt.errContains, got)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tt.wantSQL)
			}
		})
	}
}

// TestConstraintName checks truncation keeps names within the limit and
// distinct for distinct inputs.
func TestConstraintName(t *testing.T) {
	t.Parallel()

	if got := ConstraintName(0, "pk", "a.b"); got != "pk_a_b" {
		t.Fatalf("ConstraintName = %q, want %q", got, "pk_a_b")
	}

	long1 := ConstraintName(30, "fk", strings.Repeat("x", 40), "one")
	long2 := ConstraintName(30, "fk", strings.Repeat("x", 40), "two")
	if len(long1) != 30 || len(long2) != 30 {
		t.Fatalf("lengths = %d, %d; want 30", len(long1), len(long2))
	}
	if long1 == long2 {
		t.Fatalf("truncated names collide: %q", long1)
	}
}

// TestBuildDropTableSQL covers the drop wrapper.
func TestBuildDropTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildDropTableSQL("s.t", plainDialect{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `DROP TABLE "s"."t";` {
		t.Fatalf("got %q", got)
	}
	if _, err := BuildDropTableSQL(" ", plainDialect{}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
