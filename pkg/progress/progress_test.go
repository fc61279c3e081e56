package progress

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recorder struct {
	events []string
}

func (r *recorder) Started(Update)   { r.events = append(r.events, "started") }
func (r *recorder) Progress(Update)  { r.events = append(r.events, "progress") }
func (r *recorder) Completed(Update) { r.events = append(r.events, "completed") }

func TestMulti_FansOutInOrder(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	m := Multi{first, second}

	m.Started(Update{})
	m.Progress(Update{})
	m.Completed(Update{})

	for _, r := range []*recorder{first, second} {
		if len(r.events) != 3 || r.events[0] != "started" || r.events[2] != "completed" {
			t.Errorf("unexpected event sequence: %v", r.events)
		}
	}
}

func TestMetrics_CountsNotifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Started(Update{Total: 42})
	m.Progress(Update{Processed: 1})
	m.Progress(Update{Processed: 2})
	m.Completed(Update{Status: "COMPLETED"})

	if got := testutil.ToFloat64(m.runsStarted); got != 1 {
		t.Errorf("expected 1 run started, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsProcessed); got != 2 {
		t.Errorf("expected 2 items processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsTotal); got != 42 {
		t.Errorf("expected expected-objects gauge 42, got %v", got)
	}
	if got := testutil.ToFloat64(m.runsCompleted.WithLabelValues("COMPLETED")); got != 1 {
		t.Errorf("expected 1 completed run, got %v", got)
	}
}
