package engine

import (
	"time"

	"fleetconsole/liveness"
	"fleetconsole/mission"
	"fleetconsole/telemetry"
)

const (
	EventTelemetryUpdated EventType = iota + 1
	EventStatusChanged
	EventPathUpdated
	EventMissionStarted
	EventMissionAdvanced
	EventMissionEnded
	EventCommandSent
	EventChannelUp
	EventChannelDown
)

// --- Event payloads ---

type TelemetryUpdatedEvent struct {
	RobotID  string
	Channel  string
	Entry    telemetry.Entry
	LastSeen time.Time
}

type StatusChangedEvent struct {
	RobotID string
	From    liveness.Status
	To      liveness.Status
}

type PathUpdatedEvent struct {
	RobotID string
	Points  []telemetry.GeoPoint
}

// Mission events carry the sequencer snapshot taken at emission, so
// subscribers never have to call back into the engine.
type MissionStartedEvent struct {
	RobotID       string
	MissionID     string
	WaypointCount int
	Snapshot      mission.Snapshot
}

type MissionAdvancedEvent struct {
	RobotID   string
	MissionID string
	DoneIndex int
	NextIndex int
	Snapshot  mission.Snapshot
}

type MissionEndedEvent struct {
	RobotID   string
	MissionID string
	State     mission.State
	Reason    string
	Snapshot  mission.Snapshot
}

type CommandSentEvent struct {
	RobotID string
	Kind    string
	Source  string
}

type ConnectionEvent struct {
	Detail string
}
