package mission

import "fleetconsole/wire"

// Emitter is the interface adapters must satisfy to bridge sequencer
// output to the engine: outbound robot commands and mission lifecycle
// events.
type Emitter interface {
	EmitCommand(cmd wire.Command)
	EmitMissionStarted(robotID, missionID string, waypointCount int)
	EmitMissionAdvanced(robotID, missionID string, doneIndex, nextIndex int)
	EmitMissionEnded(robotID, missionID string, state State, reason string)
}

// Gate reports whether a robot is currently online. The liveness
// tracker backs it; tests use a stub.
type Gate interface {
	Online(robotID string) bool
}
