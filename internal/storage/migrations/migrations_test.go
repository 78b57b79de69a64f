package migrations

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pudl/internal/ddl"
)

var defs = []ddl.TableDef{
	{
		Name:       "utilities_ferc1",
		Columns:    []ddl.ColumnDef{{Name: "utility_id_ferc1", Type: ddl.TypeInteger}},
		PrimaryKey: []string{"utility_id_ferc1"},
	},
	{
		Name: "plants_ferc1",
		Columns: []ddl.ColumnDef{
			{Name: "utility_id_ferc1", Type: ddl.TypeInteger},
			{Name: "plant_name_ferc1", Type: ddl.TypeText},
		},
		PrimaryKey: []string{"utility_id_ferc1", "plant_name_ferc1"},
		ForeignKeys: []ddl.ForeignKeyDef{
			{Columns: []string{"utility_id_ferc1"}, RefTable: "utilities_ferc1", RefColumns: []string{"utility_id_ferc1"}},
		},
	},
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	files, err := Generate(dir, 0, "Add FERC1 glue tables", "sqlite", defs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1_add_ferc1_glue_tables.up.sql"), files.Up)
	assert.Equal(t, filepath.Join(dir, "1_add_ferc1_glue_tables.down.sql"), files.Down)

	up, err := os.ReadFile(files.Up)
	require.NoError(t, err)
	u := string(up)
	assert.Less(t, strings.Index(u, `"utilities_ferc1"`), strings.Index(u, `CREATE TABLE IF NOT EXISTS "plants_ferc1"`))

	down, err := os.ReadFile(files.Down)
	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE IF EXISTS \"plants_ferc1\";\nDROP TABLE IF EXISTS \"utilities_ferc1\";\n", string(down))

	v, err := LatestVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	files, err = Generate(dir, 0, "next", "sqlite", defs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2_next.up.sql"), files.Up)

	_, err = Generate(dir, 2, "next", "sqlite", defs)
	assert.Error(t, err, "existing files must not be overwritten")
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Generate(dir, 1, "x", "sqlite", nil)
	assert.ErrorContains(t, err, "no tables")
	_, err = Generate(dir, 1, "!!", "sqlite", defs)
	assert.ErrorContains(t, err, "no usable characters")
	_, err = Generate(dir, 1, "x", "oracle", defs)
	assert.ErrorContains(t, err, `storage.kind="oracle"`)

	v, err := LatestVersion(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestUp_SQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := Generate(dir, 20240101, "init", "sqlite", defs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pudl.sqlite")
	up := func() uint {
		db, err := Open("sqlite", path)
		require.NoError(t, err)
		v, err := Up(db, "sqlite", dir, nil)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, uint(20240101), up())
	assert.Equal(t, uint(20240101), up(), "second run has nothing to apply")

	db, err := Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('utilities_ferc1', 'plants_ferc1')`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOpenAndDriver_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Open("oracle", "x")
	assert.ErrorContains(t, err, "unsupported storage.kind=oracle")
	_, err = Open("mysql", "not a dsn")
	assert.Error(t, err)
}
