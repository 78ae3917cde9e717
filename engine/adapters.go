package engine

import (
	"fleetconsole/liveness"
	"fleetconsole/mission"
	"fleetconsole/store"
	"fleetconsole/wire"
)

// missionEmitter bridges the sequencer's emitter interface to the
// command sender and the EventBus. Sequencer callbacks only ever run
// under the engine mutex, so these use the locked send path directly.
type missionEmitter struct {
	engine *Engine
}

func (m *missionEmitter) EmitCommand(cmd wire.Command) {
	if err := m.engine.sendLocked(cmd, store.CommandSourceMission); err != nil {
		m.engine.logFn("engine: mission command for %s: %v", cmd.RobotID, err)
	}
}

func (m *missionEmitter) EmitMissionStarted(robotID, missionID string, waypointCount int) {
	m.engine.Events.Emit(Event{Type: EventMissionStarted, Payload: MissionStartedEvent{
		RobotID:       robotID,
		MissionID:     missionID,
		WaypointCount: waypointCount,
		Snapshot:      m.snapshot(robotID),
	}})
}

func (m *missionEmitter) EmitMissionAdvanced(robotID, missionID string, doneIndex, nextIndex int) {
	m.engine.Events.Emit(Event{Type: EventMissionAdvanced, Payload: MissionAdvancedEvent{
		RobotID:   robotID,
		MissionID: missionID,
		DoneIndex: doneIndex,
		NextIndex: nextIndex,
		Snapshot:  m.snapshot(robotID),
	}})
}

func (m *missionEmitter) EmitMissionEnded(robotID, missionID string, state mission.State, reason string) {
	m.engine.Events.Emit(Event{Type: EventMissionEnded, Payload: MissionEndedEvent{
		RobotID:   robotID,
		MissionID: missionID,
		State:     state,
		Reason:    reason,
		Snapshot:  m.snapshot(robotID),
	}})
}

func (m *missionEmitter) snapshot(robotID string) mission.Snapshot {
	if seq, ok := m.engine.sequencers[robotID]; ok {
		return seq.Snapshot()
	}
	return mission.Snapshot{RobotID: robotID, State: mission.StateInactive}
}

// trackerGate answers the sequencer's online checks from the liveness
// tracker. Only called with the engine mutex held.
type trackerGate struct {
	engine *Engine
}

func (g *trackerGate) Online(robotID string) bool {
	return g.engine.tracker.Status(robotID) == liveness.StatusOnline
}
