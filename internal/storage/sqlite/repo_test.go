package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gddl "pudl/internal/ddl"
	"pudl/internal/storage"
	sqliteddl "pudl/internal/storage/sqlite/ddl"
)

func openTemp(t *testing.T) *wrappedRepo {
	t.Helper()
	r, closeFn, err := NewRepository(context.Background(), filepath.Join(t.TempDir(), "pudl.sqlite"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(closeFn)
	return &wrappedRepo{Repository: r}
}

var (
	utilities = gddl.TableDef{
		Name: "utilities",
		Columns: []gddl.ColumnDef{
			{Name: "utility_id", Type: gddl.TypeInteger},
			{Name: "utility_name", Type: gddl.TypeText, Nullable: true},
		},
		PrimaryKey: []string{"utility_id"},
	}
	plants = gddl.TableDef{
		Name: "plants",
		Columns: []gddl.ColumnDef{
			{Name: "report_year", Type: gddl.TypeInteger},
			{Name: "utility_id", Type: gddl.TypeInteger},
			{Name: "plant_name", Type: gddl.TypeText},
			{Name: "opened", Type: gddl.TypeDate, Nullable: true},
			{Name: "state", Type: gddl.TypeText, Nullable: true, Enum: []string{"CO", "UT"}},
		},
		PrimaryKey: []string{"report_year", "utility_id", "plant_name"},
		ForeignKeys: []gddl.ForeignKeyDef{
			{Columns: []string{"utility_id"}, RefTable: "utilities", RefColumns: []string{"utility_id"}},
		},
	}
)

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()
	if _, _, err := NewRepository(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestRepository_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openTemp(t)

	if err := storage.EnsureTables(ctx, "sqlite", r, []gddl.TableDef{utilities, plants}, nil); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	// Create-if-missing is idempotent.
	if err := storage.EnsureTables(ctx, "sqlite", r, []gddl.TableDef{utilities, plants}, nil); err != nil {
		t.Fatalf("EnsureTables again: %v", err)
	}

	n, err := r.CopyFrom(ctx, "utilities", []string{"utility_id", "utility_name"}, [][]any{{int64(1), "Xcel"}, {int64(2), nil}})
	if err != nil || n != 2 {
		t.Fatalf("CopyFrom utilities = %d, %v", n, err)
	}
	opened := time.Date(1975, time.June, 1, 0, 0, 0, 0, time.UTC)
	n, err = r.CopyFrom(ctx, "plants", plants.ColumnNames(), [][]any{
		{int64(2020), int64(1), "Comanche", opened, "CO"},
		{int64(2020), int64(2), "Hayden", nil, nil},
	})
	if err != nil || n != 2 {
		t.Fatalf("CopyFrom plants = %d, %v", n, err)
	}

	var got string
	if err := r.DB().QueryRowContext(ctx, `SELECT opened FROM plants WHERE plant_name = 'Comanche'`).Scan(&got); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "1975-06-01" {
		t.Errorf("opened = %q, want 1975-06-01", got)
	}
}

func TestRepository_Constraints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openTemp(t)
	if err := storage.EnsureTables(ctx, "sqlite", r, []gddl.TableDef{utilities, plants}, nil); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}

	tests := []struct {
		name string
		row  []any
	}{
		{"missing parent", []any{int64(2020), int64(9), "Ghost", nil, nil}},
		{"enum", []any{int64(2020), int64(1), "Cherokee", nil, "TX"}},
	}
	if _, err := r.CopyFrom(ctx, "utilities", []string{"utility_id"}, [][]any{{int64(1)}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.CopyFrom(ctx, "plants", plants.ColumnNames(), [][]any{tt.row}); err == nil {
				t.Fatalf("insert accepted")
			}
		})
	}

	var count int
	if err := r.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM plants`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("plants has %d rows after failed batches, want 0", count)
	}
}

func TestRepository_CopyFromErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openTemp(t)

	if _, err := r.CopyFrom(ctx, "t", nil, [][]any{{1}}); err == nil {
		t.Errorf("empty columns accepted")
	}
	if n, err := r.CopyFrom(ctx, "t", []string{"a"}, nil); err != nil || n != 0 {
		t.Errorf("empty rows = %d, %v", n, err)
	}
	if err := r.Exec(ctx, `CREATE TABLE t (a INTEGER, b INTEGER)`); err != nil {
		t.Fatal(err)
	}
	_, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{1}})
	if err == nil || !strings.Contains(err.Error(), "row length 1 != columns length 2") {
		t.Errorf("err = %v", err)
	}
}

func TestDialect_CreateTable(t *testing.T) {
	t.Parallel()

	got, err := gddl.BuildCreateTableSQL(plants, sqliteddl.Dialect{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "plants" (`,
		`"report_year" INTEGER NOT NULL`,
		`"opened" TEXT`,
		`CONSTRAINT "pk_plants" PRIMARY KEY ("report_year", "utility_id", "plant_name")`,
		`CONSTRAINT "ck_plants_state_enum" CHECK ("state" IN ('CO', 'UT'))`,
		`CONSTRAINT "fk_plants_utility_id_utilities" FOREIGN KEY ("utility_id") REFERENCES "utilities" ("utility_id")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DDL missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, ");") {
		t.Errorf("DDL does not end with ;:\n%s", got)
	}
}

func TestAdapter_UsesHook(t *testing.T) {
	boom := errors.New("boom")
	old := newRepository
	newRepository = func(context.Context, string) (*Repository, func(), error) { return nil, nil, boom }
	t.Cleanup(func() { newRepository = old })

	if _, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
