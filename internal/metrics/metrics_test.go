package metrics

import (
	"errors"
	"testing"
	"time"
)

type captureBackend struct {
	counters   map[string]float64
	labels     map[string]Labels
	histograms map[string][]float64
	flushed    int
}

func newCaptureBackend() *captureBackend {
	return &captureBackend{
		counters:   map[string]float64{},
		labels:     map[string]Labels{},
		histograms: map[string][]float64{},
	}
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.counters[name] += delta
	c.labels[name] = labels
}

func (c *captureBackend) ObserveHistogram(name string, value float64, labels Labels) {
	c.histograms[name] = append(c.histograms[name], value)
}

func (c *captureBackend) Flush() error {
	c.flushed++
	return nil
}

func restoreNop(t *testing.T) {
	t.Cleanup(func() { backend = nopBackend{} })
}

func TestRecordStep(t *testing.T) {
	restoreNop(t)
	b := newCaptureBackend()
	SetBackend(b)

	RecordStep("import", "load_locations", nil, 250*time.Millisecond)

	if b.counters["import_step_total"] != 1 {
		t.Errorf("step counter = %v", b.counters["import_step_total"])
	}
	if got := b.labels["import_step_total"]["status"]; got != "success" {
		t.Errorf("status = %q, want success", got)
	}
	if got := b.histograms["import_step_duration_seconds"]; len(got) != 1 || got[0] != 0.25 {
		t.Errorf("duration samples = %v", got)
	}

	RecordStep("import", "load_locations", errors.New("boom"), time.Second)
	if got := b.labels["import_step_total"]["status"]; got != "failure" {
		t.Errorf("status = %q, want failure", got)
	}
}

func TestRecordRowIgnoresNonPositive(t *testing.T) {
	restoreNop(t)
	b := newCaptureBackend()
	SetBackend(b)

	RecordRow("import", "read", 0)
	RecordRow("import", "read", -3)
	if b.counters["import_records_total"] != 0 {
		t.Errorf("counter = %v, want 0", b.counters["import_records_total"])
	}

	RecordRow("import", "read", 5)
	if b.counters["import_records_total"] != 5 {
		t.Errorf("counter = %v, want 5", b.counters["import_records_total"])
	}
	if got := b.labels["import_records_total"]["kind"]; got != "read" {
		t.Errorf("kind = %q", got)
	}
}

func TestSetBackendNilKeepsExisting(t *testing.T) {
	restoreNop(t)
	b := newCaptureBackend()
	SetBackend(b)
	SetBackend(nil)

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b.flushed != 1 {
		t.Errorf("flushed = %d, want 1", b.flushed)
	}
}
