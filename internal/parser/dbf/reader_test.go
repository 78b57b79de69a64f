package dbf

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecord struct {
	values  []any
	deleted bool
}

type fakeSource struct {
	names   []string
	records []fakeRecord
	err     error
	closed  bool
}

func (f *fakeSource) Names() []string { return f.names }

func (f *fakeSource) Next() ([]any, bool, bool, error) {
	if len(f.records) == 0 {
		return nil, false, false, f.err
	}
	r := f.records[0]
	f.records = f.records[1:]
	return r.values, r.deleted, true, nil
}

func (f *fakeSource) Close() error { f.closed = true; return nil }

func stubSource(t *testing.T, src *fakeSource) {
	t.Helper()
	old := openSource
	openSource = func(string) (source, error) { return src, nil }
	t.Cleanup(func() { openSource = old })
}

func TestReadFrame(t *testing.T) {
	src := &fakeSource{
		names: []string{"RESPONDENT_ID", "RESPONDENT_NAME", "REPORT_YR", "FILED"},
		records: []fakeRecord{
			{values: []any{int64(1), "Public Service Co of Colorado   ", float64(2019), time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)}},
			{values: []any{int64(2), "Gone", float64(2019), time.Time{}}, deleted: true},
			{values: []any{int64(3), "   ", float64(2019), time.Time{}}},
		},
	}
	stubSource(t, src)

	f, err := ReadFrame(context.Background(), "F1_1.DBF", Options{HeaderMap: map[string]string{"report_yr": "report_year"}}, nil)
	require.NoError(t, err)
	assert.True(t, src.closed)
	assert.Equal(t, []string{"respondent_id", "respondent_name", "report_year", "filed"}, f.Names())
	assert.Equal(t, [][]any{
		{int64(1), "Public Service Co of Colorado", float64(2019), time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)},
		{int64(3), nil, float64(2019), nil},
	}, f.Rows)
}

func TestReadFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
		want string
	}{
		{"duplicate names", &fakeSource{names: []string{"ID", "id"}}, `both map to "id"`},
		{"read error", &fakeSource{names: []string{"ID"}, err: errors.New("short read")}, "record 1: short read"},
		{"width", &fakeSource{names: []string{"ID"}, records: []fakeRecord{{values: []any{1, 2}}}}, "has 2 values, want 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubSource(t, tt.src)
			_, err := ReadFrame(context.Background(), "x.dbf", Options{}, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReadFrame_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(context.Background(), filepath.Join(t.TempDir(), "missing.dbf"), Options{}, nil)
	assert.ErrorContains(t, err, "dbf: open")
}

func TestCellValue(t *testing.T) {
	t.Parallel()

	assert.Nil(t, cellValue(nil, false))
	assert.Nil(t, cellValue("  ", false))
	assert.Equal(t, "", cellValue("  ", true))
	assert.Equal(t, "abc", cellValue([]byte(" abc "), false))
	assert.Nil(t, cellValue(time.Time{}, false))
	assert.Equal(t, true, cellValue(true, false))
	assert.Equal(t, 1.5, cellValue(1.5, false))
}
