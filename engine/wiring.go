package engine

import (
	"context"
	"time"
)

// mirrorContext bounds the redis mirror writes that run off the engine
// goroutine.
func mirrorContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (e *Engine) wireEventHandlers() {
	// Mission history: open a record when a run starts, close it on the
	// terminal transition.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MissionStartedEvent)
		e.logFn("engine: mission %s started for %s (%d waypoints)", ev.MissionID, ev.RobotID, ev.WaypointCount)
		if err := e.db.CreateMission(ev.MissionID, ev.RobotID, ev.WaypointCount); err != nil {
			e.logFn("engine: record mission %s: %v", ev.MissionID, err)
		}
	}, EventMissionStarted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MissionAdvancedEvent)
		if ev.NextIndex < 0 {
			e.logFn("engine: mission %s for %s reached waypoint %d (last)", ev.MissionID, ev.RobotID, ev.DoneIndex)
			return
		}
		e.logFn("engine: mission %s for %s reached waypoint %d, heading to %d", ev.MissionID, ev.RobotID, ev.DoneIndex, ev.NextIndex)
	}, EventMissionAdvanced)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MissionEndedEvent)
		e.logFn("engine: mission %s for %s ended: %s (%s)", ev.MissionID, ev.RobotID, ev.State, ev.Reason)
		if err := e.db.CloseMission(ev.MissionID, string(ev.State), ev.Reason); err != nil {
			e.logFn("engine: close mission %s: %v", ev.MissionID, err)
		}
	}, EventMissionEnded)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: telemetry link down: %s", ev.Detail)
	}, EventChannelDown)
}
