package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRunStart()
	m.RecordRunStart()
	if got := testutil.ToFloat64(m.RunsActive); got != 2 {
		t.Errorf("RunsActive = %v, want 2", got)
	}

	m.RecordRunEnd("committed", 3)
	m.RecordRunEnd("failed", 1)
	if got := testutil.ToFloat64(m.RunsActive); got != 0 {
		t.Errorf("RunsActive = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("committed")); got != 1 {
		t.Errorf("committed runs = %v, want 1", got)
	}
}

func TestRecordCommit(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCommit(nil)
	m.RecordCommit(errors.New("constraint failed"))
	m.RecordCommit(errors.New("constraint failed"))

	if got := testutil.ToFloat64(m.CommitsTotal.WithLabelValues("committed")); got != 1 {
		t.Errorf("committed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommitsTotal.WithLabelValues("rolled_back")); got != 2 {
		t.Errorf("rolled_back = %v, want 2", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	if got := testutil.ToFloat64(m.TranscriptCache.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TranscriptCache.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RecordRelation("ATTACK")
	if got := testutil.ToFloat64(b.RelationsInferred.WithLabelValues("ATTACK")); got != 0 {
		t.Errorf("b saw a's relation: %v", got)
	}
}
