package mssql

import (
	"context"
	"strings"
	"testing"

	gddl "pudl/internal/ddl"
	"pudl/internal/storage"
	msddl "pudl/internal/storage/mssql/ddl"
)

func TestAdapter_UsesHook(t *testing.T) {
	old := newRepository
	var gotDSN string
	closed := false
	newRepository = func(_ context.Context, dsn string) (*Repository, func(), error) {
		gotDSN = dsn
		return &Repository{}, func() { closed = true }, nil
	}
	t.Cleanup(func() { newRepository = old })

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://example"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	repo.Close()
	if gotDSN != "sqlserver://example" || !closed {
		t.Fatalf("dsn=%q closed=%v", gotDSN, closed)
	}
}

func TestDialect_CreateTable(t *testing.T) {
	t.Parallel()

	def := gddl.TableDef{
		Name: "dbo.plants_ferc1",
		Columns: []gddl.ColumnDef{
			{Name: "utility_id_ferc1", Type: gddl.TypeInteger},
			{Name: "plant_name_ferc1", Type: gddl.TypeText},
			{Name: "plant_type", Type: gddl.TypeText, Nullable: true},
			{Name: "o'brien", Type: gddl.TypeBoolean, Nullable: true},
		},
		PrimaryKey: []string{"utility_id_ferc1", "plant_name_ferc1"},
	}
	got, err := gddl.BuildCreateTableSQL(def, msddl.Dialect{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"IF OBJECT_ID(N'[dbo].[plants_ferc1]', N'U') IS NULL\nBEGIN\nCREATE TABLE [dbo].[plants_ferc1] (",
		"[plant_name_ferc1] NVARCHAR(450) NOT NULL",
		"[plant_type] NVARCHAR(MAX),",
		"[o'brien] BIT",
		"CONSTRAINT [pk_plants_ferc1] PRIMARY KEY ([utility_id_ferc1], [plant_name_ferc1])",
		");\nEND;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DDL missing %q:\n%s", want, got)
		}
	}

	if got := (msddl.Dialect{}).QuoteIdent("a]b"); got != "[a]]b]" {
		t.Errorf("QuoteIdent = %q", got)
	}
}

func TestAdapter_Registered(t *testing.T) {
	t.Parallel()

	found := false
	for _, k := range storage.ListKinds() {
		found = found || k == "mssql"
	}
	if !found {
		t.Fatalf("mssql not registered: %v", storage.ListKinds())
	}
	stmt, err := storage.BuildDDL("mssql", gddl.TableDef{Name: "t", Columns: []gddl.ColumnDef{{Name: "id", Type: gddl.TypeInteger}}})
	if err != nil || !strings.HasPrefix(stmt, "IF OBJECT_ID(N'[t]'") {
		t.Fatalf("BuildDDL = %q, %v", stmt, err)
	}
}
