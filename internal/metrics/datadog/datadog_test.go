package datadog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pudl/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed int
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed++
	return errors.New("closed")
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(Config{})
	assert.ErrorContains(t, err, "Addr is required")
}

func TestNewBackend_UDP(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "pudl.", GlobalTags: []string{"env:test"}})
	require.NoError(t, err)
	require.NotNil(t, b.client)
	assert.NoError(t, b.Flush())
}

func TestBackend_Forwards(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.GroupsTotal, 3.7, metrics.Labels{"resource": "plants_ferc1", "job": "ferc1"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, nil)

	assert.Equal(t, []call{
		{"count", metrics.GroupsTotal, 3, []string{"job:ferc1", "resource:plants_ferc1"}},
		{"histogram", metrics.StepDuration, 0.25, nil},
	}, fc.calls)
	assert.EqualError(t, b.Flush(), "closed")
	assert.Equal(t, 1, fc.closed)
}

func TestBackend_NilClient(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
	assert.NoError(t, b.Flush())
}
