package mission

import (
	"log"

	"github.com/google/uuid"

	"fleetconsole/telemetry"
	"fleetconsole/wire"
)

// Sequencer drives one robot through an ordered waypoint list via the
// navigate/confirm protocol. Not safe for concurrent use; the engine
// serializes all callers.
type Sequencer struct {
	robotID string
	emitter Emitter
	gate    Gate

	missionID   string
	waypoints   []Waypoint
	customer    *telemetry.GeoPoint
	activeIndex int
	state       State
	endReason   string
}

func NewSequencer(robotID string, emitter Emitter, gate Gate) *Sequencer {
	return &Sequencer{
		robotID:     robotID,
		emitter:     emitter,
		gate:        gate,
		activeIndex: -1,
		state:       StateInactive,
	}
}

func (s *Sequencer) RobotID() string { return s.robotID }

func (s *Sequencer) State() State { return s.state }

// AddWaypoint appends a stop. List mutation is rejected while active.
func (s *Sequencer) AddWaypoint(p telemetry.GeoPoint) error {
	if s.state == StateActive {
		return ErrMissionActive
	}
	s.waypoints = append(s.waypoints, Waypoint{
		Location: p,
		Status:   WaypointPending,
		Index:    len(s.waypoints),
	})
	return nil
}

// DeleteWaypoint removes one stop and re-indexes the rest.
func (s *Sequencer) DeleteWaypoint(index int) error {
	if s.state == StateActive {
		return ErrMissionActive
	}
	if index < 0 || index >= len(s.waypoints) {
		return ErrBadIndex
	}
	s.waypoints = append(s.waypoints[:index], s.waypoints[index+1:]...)
	for i := range s.waypoints {
		s.waypoints[i].Index = i
	}
	return nil
}

// SetCustomer records the final delivery destination. Allowed at any
// time; the next emitted command carries the new location.
func (s *Sequencer) SetCustomer(p telemetry.GeoPoint) {
	s.customer = &p
}

// Customer returns the destination, nil when unset. Cleared missions
// keep it; only a new session or explicit overwrite changes it.
func (s *Sequencer) Customer() *telemetry.GeoPoint { return s.customer }

// Start checks every precondition, resets waypoint statuses, targets
// index 0 and emits the first navigate command. ErrNoCustomer is
// distinct so the caller can drop the operator into pick-customer
// mode.
func (s *Sequencer) Start() error {
	if s.state == StateActive {
		return ErrMissionActive
	}
	if len(s.waypoints) == 0 {
		return ErrNoWaypoints
	}
	if !s.gate.Online(s.robotID) {
		return ErrRobotOffline
	}
	if s.customer == nil {
		return ErrNoCustomer
	}

	s.missionID = uuid.NewString()
	s.state = StateActive
	s.endReason = ""
	s.activeIndex = 0
	for i := range s.waypoints {
		s.waypoints[i].Status = WaypointPending
	}
	s.emitter.EmitMissionStarted(s.robotID, s.missionID, len(s.waypoints))
	s.sendTarget()
	return nil
}

// Confirm handles an arrived signal from the robot's status channel.
// Marks the in-flight waypoint done and advances, finishing the
// mission after the last one. Signals outside an active mission are
// dropped; robots re-send confirmations.
func (s *Sequencer) Confirm() {
	if s.state != StateActive || s.activeIndex < 0 || s.activeIndex >= len(s.waypoints) {
		log.Printf("mission: %s: arrival confirmation outside active mission, dropped", s.robotID)
		return
	}
	done := s.activeIndex
	s.waypoints[done].Status = WaypointDone
	s.activeIndex++
	if s.activeIndex < len(s.waypoints) {
		s.emitter.EmitMissionAdvanced(s.robotID, s.missionID, done, s.activeIndex)
		s.sendTarget()
		return
	}
	s.finish()
}

// Fault moves an active mission to error. The in-flight target reverts
// to pending: it was not reached.
func (s *Sequencer) Fault(reason string) {
	if s.state != StateActive {
		return
	}
	if s.activeIndex >= 0 && s.activeIndex < len(s.waypoints) &&
		s.waypoints[s.activeIndex].Status == WaypointTarget {
		s.waypoints[s.activeIndex].Status = WaypointPending
	}
	s.state = StateError
	s.endReason = reason
	s.activeIndex = -1
	log.Printf("mission: %s: mission %s errored (%s)", s.robotID, s.missionID, reason)
	s.emitter.EmitMissionEnded(s.robotID, s.missionID, StateError, reason)
}

// Stop is an operator cancellation: same transition as a fault, its
// own reported reason.
func (s *Sequencer) Stop() {
	s.Fault(ReasonStopped)
}

// Clear drops the waypoints and returns a terminal or idle mission to
// inactive. The customer destination survives.
func (s *Sequencer) Clear() error {
	if s.state == StateActive {
		return ErrMissionActive
	}
	s.waypoints = nil
	s.activeIndex = -1
	s.state = StateInactive
	s.missionID = ""
	s.endReason = ""
	return nil
}

// OnStatusChange faults an active mission when its robot stops being
// online.
func (s *Sequencer) OnStatusChange(online bool) {
	if s.state == StateActive && !online {
		s.Fault(ReasonOffline)
	}
}

func (s *Sequencer) finish() {
	for i := range s.waypoints {
		s.waypoints[i].Status = WaypointDone
	}
	s.state = StateFinished
	s.endReason = ReasonFinished
	s.activeIndex = -1
	log.Printf("mission: %s: mission %s finished, all waypoints done", s.robotID, s.missionID)
	s.emitter.EmitMissionEnded(s.robotID, s.missionID, StateFinished, ReasonFinished)
}

// sendTarget marks the current waypoint as target and emits the
// navigate command. Preconditions are re-checked at emission time;
// a failure faults the mission rather than sending a stale command.
func (s *Sequencer) sendTarget() {
	if s.activeIndex < 0 || s.activeIndex >= len(s.waypoints) {
		s.Fault(ReasonStopped)
		return
	}
	if !s.gate.Online(s.robotID) {
		log.Printf("mission: %s: robot went offline before command emission", s.robotID)
		s.Fault(ReasonOffline)
		return
	}
	if s.customer == nil {
		log.Printf("mission: %s: customer destination missing at emission time", s.robotID)
		s.Fault(ReasonNoCustomer)
		return
	}

	wp := &s.waypoints[s.activeIndex]
	wp.Status = WaypointTarget
	target := wire.Vec3{X: wp.Location.Latitude, Y: wp.Location.Longitude}
	customer := wire.Vec3{X: s.customer.Latitude, Y: s.customer.Longitude}
	log.Printf("mission: %s: sending waypoint %d/%d", s.robotID, s.activeIndex+1, len(s.waypoints))
	s.emitter.EmitCommand(wire.NavigateCommand(s.robotID, target, customer))
}

// Snapshot copies the sequencer state for push and API reads.
func (s *Sequencer) Snapshot() Snapshot {
	snap := Snapshot{
		RobotID:     s.robotID,
		MissionID:   s.missionID,
		State:       s.state,
		ActiveIndex: s.activeIndex,
		Waypoints:   append([]Waypoint(nil), s.waypoints...),
		EndReason:   s.endReason,
	}
	if s.customer != nil {
		c := *s.customer
		snap.Customer = &c
	}
	return snap
}
