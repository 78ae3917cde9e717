package liveness

import (
	"testing"
	"time"
)

const threshold = 30 * time.Second

func TestDeriveStatusNeverSeen(t *testing.T) {
	for _, now := range []time.Time{time.Unix(0, 1), time.Unix(1e9, 0)} {
		if s := DeriveStatus(time.Time{}, now, threshold); s != StatusWaiting {
			t.Errorf("never-seen robot at now=%v: got %s, want %s", now, s, StatusWaiting)
		}
	}
}

func TestDeriveStatusThresholdCrossing(t *testing.T) {
	seen := time.Unix(1000, 0)
	cases := []struct {
		age  time.Duration
		want Status
	}{
		{0, StatusOnline},
		{threshold - time.Millisecond, StatusOnline},
		{threshold, StatusOffline},
		{threshold + time.Hour, StatusOffline},
	}
	for _, c := range cases {
		if got := DeriveStatus(seen, seen.Add(c.age), threshold); got != c.want {
			t.Errorf("age %v: got %s, want %s", c.age, got, c.want)
		}
	}
}

type fakeSource struct {
	robots []string
	seen   map[string]time.Time
}

func (f *fakeSource) Robots() []string { return f.robots }

func (f *fakeSource) LastSeen(id string) time.Time { return f.seen[id] }

func TestEvaluateEmitsTransitionsOnce(t *testing.T) {
	src := &fakeSource{
		robots: []string{"alpha01"},
		seen:   map[string]time.Time{"alpha01": time.Unix(1000, 0)},
	}
	tr := NewTracker(threshold)

	now := time.Unix(1005, 0)
	changes := tr.Evaluate(src, now)
	if len(changes) != 1 || changes[0].To != StatusOnline {
		t.Fatalf("first evaluation: got %+v, want one waiting->online change", changes)
	}
	if changes[0].From != StatusWaiting {
		t.Fatalf("from = %s, want %s", changes[0].From, StatusWaiting)
	}

	// Idempotent: same inputs, no changes.
	if changes := tr.Evaluate(src, now); len(changes) != 0 {
		t.Fatalf("second evaluation with unchanged inputs: got %+v, want none", changes)
	}
}

func TestEvaluateFlipsOfflineAndStaysOffline(t *testing.T) {
	src := &fakeSource{
		robots: []string{"alpha01"},
		seen:   map[string]time.Time{"alpha01": time.Unix(1000, 0)},
	}
	tr := NewTracker(threshold)
	tr.Evaluate(src, time.Unix(1001, 0)) // online

	changes := tr.Evaluate(src, time.Unix(1031, 0))
	if len(changes) != 1 || changes[0].From != StatusOnline || changes[0].To != StatusOffline {
		t.Fatalf("got %+v, want online->offline", changes)
	}

	// Never flips back without a newer heartbeat.
	if changes := tr.Evaluate(src, time.Unix(2000, 0)); len(changes) != 0 {
		t.Fatalf("got %+v, want none without new heartbeat", changes)
	}

	src.seen["alpha01"] = time.Unix(2000, 0)
	changes = tr.Evaluate(src, time.Unix(2001, 0))
	if len(changes) != 1 || changes[0].To != StatusOnline {
		t.Fatalf("got %+v, want offline->online after fresh heartbeat", changes)
	}
}

func TestForceOffline(t *testing.T) {
	src := &fakeSource{
		robots: []string{"alpha01", "alpha02"},
		seen: map[string]time.Time{
			"alpha01": time.Unix(1000, 0),
		},
	}
	tr := NewTracker(threshold)
	tr.Evaluate(src, time.Unix(1001, 0)) // alpha01 online, alpha02 waiting

	changes := tr.ForceOffline(src)
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	for _, id := range src.robots {
		if tr.Status(id) != StatusOffline {
			t.Errorf("%s status = %s, want offline", id, tr.Status(id))
		}
	}

	// Already offline: nothing to report.
	if changes := tr.ForceOffline(src); len(changes) != 0 {
		t.Fatalf("repeat force-offline: got %+v, want none", changes)
	}
}
