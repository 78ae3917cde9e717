package mission

import (
	"errors"

	"fleetconsole/telemetry"
)

type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateFinished State = "finished"
	StateError    State = "error"
)

type WaypointStatus string

const (
	WaypointPending WaypointStatus = "pending"
	WaypointTarget  WaypointStatus = "target"
	WaypointDone    WaypointStatus = "done"
)

// Waypoint is one store stop in the ordered delivery sequence.
type Waypoint struct {
	Location telemetry.GeoPoint `json:"location"`
	Status   WaypointStatus     `json:"status"`
	Index    int                `json:"index"`
}

// End reasons reported with a terminal transition.
const (
	ReasonFinished    = "finished"
	ReasonStopped     = "stopped"
	ReasonOffline     = "robot_offline"
	ReasonChannelLoss = "channel_loss"
	ReasonNoCustomer  = "customer_missing"
	ReasonEmergency   = "emergency_stop"
)

// Start and mutation rejections. Reported to the operator; no state
// changes on any of them.
var (
	ErrNoWaypoints   = errors.New("mission has no waypoints")
	ErrRobotOffline  = errors.New("robot is not online")
	ErrNoCustomer    = errors.New("customer destination not set")
	ErrMissionActive = errors.New("mission is active")
	ErrBadIndex      = errors.New("waypoint index out of range")
)

// Snapshot is the sequencer's externally visible state.
type Snapshot struct {
	RobotID     string              `json:"robot_id"`
	MissionID   string              `json:"mission_id,omitempty"`
	State       State               `json:"state"`
	ActiveIndex int                 `json:"active_index"`
	Waypoints   []Waypoint          `json:"waypoints"`
	Customer    *telemetry.GeoPoint `json:"customer,omitempty"`
	EndReason   string              `json:"end_reason,omitempty"`
}
