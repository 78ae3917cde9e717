// Package liveness derives tri-state robot status from heartbeat
// timestamps and reports transitions.
package liveness

import "time"

type Status string

const (
	StatusWaiting Status = "waiting" // never contacted
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// DeriveStatus classifies one heartbeat age. A zero lastSeen means the
// robot has never been heard from. No hysteresis: a heartbeat crossing
// the threshold flips status on the next evaluation.
func DeriveStatus(lastSeen, now time.Time, threshold time.Duration) Status {
	if lastSeen.IsZero() {
		return StatusWaiting
	}
	if now.Sub(lastSeen) < threshold {
		return StatusOnline
	}
	return StatusOffline
}

// Change is one robot's status transition between evaluations.
type Change struct {
	RobotID string `json:"robot_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

// HeartbeatSource is what the tracker evaluates against; the telemetry
// cache satisfies it.
type HeartbeatSource interface {
	Robots() []string
	LastSeen(robotID string) time.Time
}

// Tracker remembers each robot's last derived status so evaluations can
// emit only the changed set. Not safe for concurrent use; the engine
// serializes all callers.
type Tracker struct {
	threshold time.Duration
	statuses  map[string]Status
}

func NewTracker(threshold time.Duration) *Tracker {
	return &Tracker{
		threshold: threshold,
		statuses:  make(map[string]Status),
	}
}

// Status returns the robot's last derived status, waiting if it has
// never been evaluated.
func (t *Tracker) Status(robotID string) Status {
	if s, ok := t.statuses[robotID]; ok {
		return s
	}
	return StatusWaiting
}

// Evaluate recomputes every robot's status and returns the robots whose
// status changed since the previous run. Re-running with unchanged
// inputs yields an empty changed set.
func (t *Tracker) Evaluate(src HeartbeatSource, now time.Time) []Change {
	var changes []Change
	for _, id := range src.Robots() {
		next := DeriveStatus(src.LastSeen(id), now, t.threshold)
		prev, known := t.statuses[id]
		if !known {
			prev = StatusWaiting
		}
		if next != prev || !known {
			t.statuses[id] = next
		}
		if next != prev {
			changes = append(changes, Change{RobotID: id, From: prev, To: next})
		}
	}
	return changes
}

// ForceOffline marks every robot offline regardless of heartbeat age,
// used when the broker connection drops. Returns the changed set.
func (t *Tracker) ForceOffline(src HeartbeatSource) []Change {
	var changes []Change
	for _, id := range src.Robots() {
		prev, known := t.statuses[id]
		if !known {
			prev = StatusWaiting
		}
		t.statuses[id] = StatusOffline
		if prev != StatusOffline {
			changes = append(changes, Change{RobotID: id, From: prev, To: StatusOffline})
		}
	}
	return changes
}
