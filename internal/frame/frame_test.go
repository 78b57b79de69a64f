package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsRaggedRows(t *testing.T) {
	t.Parallel()

	_, err := New([]Column{{Name: "a"}, {Name: "b"}}, [][]any{{1, 2}, {3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestNew_RejectsDuplicateColumns(t *testing.T) {
	t.Parallel()

	_, err := New([]Column{{Name: "a"}, {Name: "a"}}, nil)
	require.Error(t, err)
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	f, err := FromMap([]string{"id", "x"}, map[string][]any{
		"id": {1, 2},
		"x":  {"a", nil},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x"}, f.Names())
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []any{"a", nil}, f.Values("x"))
	assert.Nil(t, f.Values("missing"))

	_, err = FromMap([]string{"id", "x"}, map[string][]any{"id": {1}, "x": {1, 2}})
	require.Error(t, err)
}

func TestConcat_CarriesLabels(t *testing.T) {
	t.Parallel()

	cols := []Column{{Name: "id", Kind: Int}}
	a := MustNew(cols, [][]any{{int64(1)}, {int64(2)}}).WithLabel("a")
	b := MustNew(cols, [][]any{{int64(3)}}).WithLabel("b")

	out, err := Concat(cols, a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"a", "a", "b"}, out.Index)

	_, err = Concat(cols, MustNew([]Column{{Name: "other", Kind: Int}}, nil))
	require.Error(t, err)
}

func TestConcat_NoInputs(t *testing.T) {
	t.Parallel()

	cols := []Column{{Name: "id", Kind: Int}}
	out, err := Concat(cols)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, cols, out.Columns)
}

func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	f := MustNew([]Column{{Name: "x"}}, [][]any{{"a"}})
	c := f.Clone()
	c.Rows[0][0] = "b"
	assert.Equal(t, "a", f.Rows[0][0])
	assert.True(t, f.Equal(f.Clone()))
	assert.False(t, f.Equal(c))
}

func TestCompare(t *testing.T) {
	t.Parallel()

	d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nil first", nil, int64(0), -1},
		{"int eq float", int64(2), 2.0, 0},
		{"int lt", int64(1), int64(2), -1},
		{"string gt", "b", "a", 1},
		{"time lt", d1, d2, -1},
		{"bool", false, true, -1},
		{"number before string", int64(9), "1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}
