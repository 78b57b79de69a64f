package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupBy_SortsAndDropsNullKeys(t *testing.T) {
	t.Parallel()

	f := MustNew(
		[]Column{{Name: "id", Kind: Int}, {Name: "x", Kind: Int}},
		[][]any{
			{int64(2), int64(20)},
			{int64(1), int64(10)},
			{nil, int64(99)},
			{int64(2), int64(21)},
		},
	)
	groups, err := GroupBy(f, []string{"id"})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []any{int64(1)}, groups[0].Key)
	assert.Equal(t, []int{1}, groups[0].Rows)
	assert.Equal(t, []any{int64(2)}, groups[1].Key)
	assert.Equal(t, []int{0, 3}, groups[1].Rows)
}

func TestGroupBy_CompositeKeys(t *testing.T) {
	t.Parallel()

	f := MustNew(
		[]Column{{Name: "a", Kind: String}, {Name: "b", Kind: Int}},
		[][]any{
			{"x", int64(1)},
			{"x", int64(2)},
			{"x", int64(1)},
			{"w", int64(1)},
		},
	)
	groups, err := GroupBy(f, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []any{"w", int64(1)}, groups[0].Key)
	assert.Equal(t, []any{"x", int64(1)}, groups[1].Key)
	assert.Equal(t, []int{0, 2}, groups[1].Rows)
}

func TestGroupBy_WholeFloatsGroupWithInts(t *testing.T) {
	t.Parallel()

	f := MustNew([]Column{{Name: "id"}}, [][]any{{int64(3)}, {3.0}, {3.5}})
	groups, err := GroupBy(f, []string{"id"})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Rows, 2)
}

func TestGroupBy_Errors(t *testing.T) {
	t.Parallel()

	f := MustNew([]Column{{Name: "id"}}, nil)
	_, err := GroupBy(f, nil)
	require.Error(t, err)
	_, err = GroupBy(f, []string{"nope"})
	require.Error(t, err)
}

func TestAppendKey_SeparatesTypes(t *testing.T) {
	t.Parallel()

	s := AppendKey(nil, []any{"1"})
	n := AppendKey(nil, []any{int64(1)})
	assert.NotEqual(t, string(s), string(n))
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(2, abc, null)", KeyString([]any{int64(2), "abc", nil}))
}

func TestGroupBy_DropsNaNKeys(t *testing.T) {
	t.Parallel()

	f := MustNew(
		[]Column{{Name: "k", Kind: Float}, {Name: "x", Kind: Int}},
		[][]any{
			{math.NaN(), int64(1)},
			{1.5, int64(2)},
			{math.NaN(), int64(3)},
		},
	)
	groups, err := GroupBy(f, []string{"k"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []any{1.5}, groups[0].Key)
	assert.Equal(t, []int{1}, groups[0].Rows)
}

func TestIsNull(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(math.NaN()))
	assert.True(t, IsNull(float32(math.NaN())))
	assert.False(t, IsNull(0.0))
	assert.False(t, IsNull(""))
	assert.False(t, IsNull(math.Inf(1)))
}
