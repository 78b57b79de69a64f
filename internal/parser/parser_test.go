package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pudl/internal/datasource/file"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, want string
		wantErr    bool
	}{
		{"f1_plant.csv", FormatCSV, false},
		{"EIA860.TSV", FormatCSV, false},
		{"F1_1.DBF", FormatDBF, false},
		{"plants.xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if tt.wantErr {
			assert.Error(t, err, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestRead_CSVFromSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plants.tsv"), []byte("Plant ID\tName\n1\tComanche\n"), 0o644))

	f, err := Read(context.Background(), file.NewLocal(dir), "plants.tsv", "", Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"plant_id", "name"}, f.Names())
	assert.Equal(t, [][]any{{"1", "Comanche"}}, f.Rows)

	_, err = Read(context.Background(), file.NewLocal(dir), "plants.tsv", "parquet", Options{}, nil)
	assert.ErrorContains(t, err, `unsupported format "parquet"`)

	_, err = Read(context.Background(), file.NewLocal(dir), "missing.csv", "", Options{}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
