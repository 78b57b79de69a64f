package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pudl/internal/metadata"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	// Success case.
	RecordStep("ferc1", "read", nil, 2*time.Second)

	// Failure case.
	err := errors.New("boom")
	RecordStep("eia860", "load", err, 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	// First call: success.
	cc0 := fb.callsCounters[0]
	if cc0.name != "pudl_step_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=pudl_step_total, delta=1", cc0)
	}
	if got := cc0.labels["job"]; got != "ferc1" {
		t.Fatalf("counter[0].labels[job]=%q; want %q", got, "ferc1")
	}
	if got := cc0.labels["step"]; got != "read" {
		t.Fatalf("counter[0].labels[step]=%q; want %q", got, "read")
	}
	if got := cc0.labels["status"]; got != "success" {
		t.Fatalf("counter[0].labels[status]=%q; want %q", got, "success")
	}

	h0 := fb.callsHistograms[0]
	if h0.name != "pudl_step_duration_seconds" {
		t.Fatalf("hist[0].name=%q; want pudl_step_duration_seconds", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	// Second call: failure.
	cc1 := fb.callsCounters[1]
	if cc1.labels["job"] != "eia860" || cc1.labels["step"] != "load" {
		t.Fatalf("counter[1] labels job/step = %v; want eia860/loader", cc1.labels)
	}
	if cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want %q", cc1.labels["status"], "failure")
	}

	h1 := fb.callsHistograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowAndBatches(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRow("eia923", "read", 3)
	RecordRow("eia923", "read", 0) // should be ignored
	RecordRow("ferc714", "loaded", 5)
	RecordBatches("epacems", 2)

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}

	// 1) read
	c0 := fb.callsCounters[0]
	if c0.name != "pudl_records_total" || c0.delta != 3 {
		t.Fatalf("counter[0] = %#v; want name=pudl_records_total, delta=3", c0)
	}
	if c0.labels["job"] != "eia923" || c0.labels["kind"] != "read" {
		t.Fatalf("counter[0] labels = %v; want job=eia923, kind=read", c0.labels)
	}

	// 2) loaded
	c1 := fb.callsCounters[1]
	if c1.name != "pudl_records_total" || c1.delta != 5 {
		t.Fatalf("counter[1] = %#v; want name=pudl_records_total, delta=5", c1)
	}
	if c1.labels["job"] != "ferc714" || c1.labels["kind"] != "loaded" {
		t.Fatalf("counter[1] labels = %v; want job=ferc714, kind=loaded", c1.labels)
	}

	// 3) batches
	c2 := fb.callsCounters[2]
	if c2.name != "pudl_batches_total" || c2.delta != 2 {
		t.Fatalf("counter[2] = %#v; want name=pudl_batches_total, delta=2", c2)
	}
	if c2.labels["job"] != "epacems" {
		t.Fatalf("counter[2].labels[job]=%q; want %q", c2.labels["job"], "epacems")
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}

func TestRecordHarvest(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordHarvest("ferc1", "plants_ferc1", nil)
	if len(fb.callsCounters) != 0 {
		t.Fatalf("nil report recorded %d counters", len(fb.callsCounters))
	}

	report := &metadata.Report{
		Valid: false,
		Fields: map[string]metadata.FieldReport{
			"plant_name_ferc1": {Valid: true, Stats: metadata.Stats{All: 4}},
			"capacity_mw":      {Valid: false, Stats: metadata.Stats{All: 4, Invalid: 3}},
		},
	}
	RecordHarvest("ferc1", "plants_ferc1", report)

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}
	want := []struct {
		name   string
		delta  float64
		status string
	}{
		{GroupsTotal, 5, "valid"},
		{GroupsTotal, 3, "invalid"},
		{ResourcesTotal, 1, "invalid"},
	}
	for i, w := range want {
		c := fb.callsCounters[i]
		if c.name != w.name || c.delta != w.delta || c.labels["status"] != w.status {
			t.Fatalf("counter[%d] = %#v; want %s delta=%v status=%s", i, c, w.name, w.delta, w.status)
		}
		if c.labels["job"] != "ferc1" || c.labels["resource"] != "plants_ferc1" {
			t.Fatalf("counter[%d] labels = %v", i, c.labels)
		}
	}
}
