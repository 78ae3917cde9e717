package engine

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fleetconsole/config"
	"fleetconsole/liveness"
	"fleetconsole/mission"
	"fleetconsole/store"
	"fleetconsole/telemetry"
	"fleetconsole/wire"
)

type fakeSender struct {
	commands []wire.Command
	sources  []string
	sendErr  error
}

func (f *fakeSender) Send(cmd wire.Command, source string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.commands = append(f.commands, cmd)
	f.sources = append(f.sources, source)
	return nil
}

func testEngine(t *testing.T) (*Engine, *fakeSender) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Fleet.Robots = []string{"alpha01"}
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sender := &fakeSender{}
	e := New(Config{
		AppConfig: cfg,
		DB:        db,
		Cache:     telemetry.NewCache(cfg.Fleet.Robots, cfg.Fleet.ExpectedChannels),
		Commander: sender,
		LogFunc:   func(string, ...any) {},
	})
	e.wireEventHandlers()
	return e, sender
}

// setClock pins the engine's notion of now.
func setClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func heartbeat(e *Engine, robotID string, at time.Time) {
	setClock(e, at)
	e.HandleTelemetry(robotID, wire.ChannelRobotStatus, map[string]any{"battery": 87}, at)
}

func arrive(e *Engine, robotID string, at time.Time) {
	setClock(e, at)
	e.HandleTelemetry(robotID, wire.ChannelRobotStatus,
		map[string]any{"confirmation": int64(wire.ConfirmationArrived)}, at)
}

func TestTelemetryFlipsOnline(t *testing.T) {
	e, _ := testEngine(t)
	base := time.Now()

	var changes []StatusChangedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		changes = append(changes, evt.Payload.(StatusChangedEvent))
	}, EventStatusChanged)

	if got := e.Status("alpha01"); got != liveness.StatusWaiting {
		t.Fatalf("before telemetry: status %s, want waiting", got)
	}

	heartbeat(e, "alpha01", base)

	if got := e.Status("alpha01"); got != liveness.StatusOnline {
		t.Fatalf("after telemetry: status %s, want online", got)
	}
	if len(changes) != 1 || changes[0].To != liveness.StatusOnline {
		t.Fatalf("status events = %+v, want one waiting->online", changes)
	}
}

func TestUnknownRobotRegistered(t *testing.T) {
	e, _ := testEngine(t)
	heartbeat(e, "stray99", time.Now())

	r, err := e.db.GetRobot("stray99")
	if err != nil {
		t.Fatalf("GetRobot after telemetry: %v", err)
	}
	if r.RobotID != "stray99" {
		t.Fatalf("registered %q, want stray99", r.RobotID)
	}
}

func TestStaleRobotFlipsOffline(t *testing.T) {
	e, _ := testEngine(t)
	base := time.Now()
	heartbeat(e, "alpha01", base)

	// Just inside the threshold: still online.
	setClock(e, base.Add(e.cfg.Fleet.OfflineThreshold-time.Second))
	e.mu.Lock()
	e.evaluateLivenessLocked()
	e.mu.Unlock()
	if got := e.Status("alpha01"); got != liveness.StatusOnline {
		t.Fatalf("inside threshold: status %s, want online", got)
	}

	setClock(e, base.Add(e.cfg.Fleet.OfflineThreshold+time.Second))
	e.mu.Lock()
	e.evaluateLivenessLocked()
	e.mu.Unlock()
	if got := e.Status("alpha01"); got != liveness.StatusOffline {
		t.Fatalf("past threshold: status %s, want offline", got)
	}
}

func TestMissionFlow(t *testing.T) {
	e, sender := testEngine(t)
	base := time.Now()
	heartbeat(e, "alpha01", base)

	wp1 := telemetry.GeoPoint{Latitude: 37.1, Longitude: -122.1}
	wp2 := telemetry.GeoPoint{Latitude: 37.2, Longitude: -122.2}
	cust := telemetry.GeoPoint{Latitude: 37.3, Longitude: -122.3}
	if err := e.AddWaypoint("alpha01", wp1); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	if err := e.AddWaypoint("alpha01", wp2); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	e.SetCustomer("alpha01", cust)

	if err := e.StartMission("alpha01"); err != nil {
		t.Fatalf("StartMission: %v", err)
	}
	if len(sender.commands) != 1 {
		t.Fatalf("sent %d commands after start, want 1", len(sender.commands))
	}
	payload := sender.commands[0].Payload.(wire.ServerCommand)
	if payload.StoreLocation.X != wp1.Latitude || payload.StoreLocation.Y != wp1.Longitude {
		t.Fatalf("first target = %+v, want waypoint 1", payload.StoreLocation)
	}
	if sender.sources[0] != store.CommandSourceMission {
		t.Fatalf("command source = %s, want mission", sender.sources[0])
	}

	snap := e.MissionSnapshot("alpha01")
	if snap.State != mission.StateActive {
		t.Fatalf("state = %s, want active", snap.State)
	}
	missionID := snap.MissionID

	// Arrival at waypoint 1 advances to waypoint 2.
	arrive(e, "alpha01", base.Add(time.Second))
	if len(sender.commands) != 2 {
		t.Fatalf("sent %d commands after first arrival, want 2", len(sender.commands))
	}
	payload = sender.commands[1].Payload.(wire.ServerCommand)
	if payload.StoreLocation.X != wp2.Latitude {
		t.Fatalf("second target = %+v, want waypoint 2", payload.StoreLocation)
	}

	// Arrival at the last waypoint finishes the run.
	arrive(e, "alpha01", base.Add(2*time.Second))
	snap = e.MissionSnapshot("alpha01")
	if snap.State != mission.StateFinished || snap.EndReason != mission.ReasonFinished {
		t.Fatalf("after final arrival: %s/%s, want finished", snap.State, snap.EndReason)
	}

	records, err := e.db.ListMissions("alpha01", 10)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d mission records, want 1", len(records))
	}
	rec := records[0]
	if rec.MissionID != missionID || rec.Outcome != "finished" || rec.EndedAt == nil {
		t.Fatalf("mission record %+v, want closed finished %s", rec, missionID)
	}
}

func TestConnectionDownFaultsMission(t *testing.T) {
	e, _ := testEngine(t)
	base := time.Now()
	heartbeat(e, "alpha01", base)
	if err := e.AddWaypoint("alpha01", telemetry.GeoPoint{Latitude: 37.1, Longitude: -122.1}); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	e.SetCustomer("alpha01", telemetry.GeoPoint{Latitude: 37.3, Longitude: -122.3})
	if err := e.StartMission("alpha01"); err != nil {
		t.Fatalf("StartMission: %v", err)
	}

	e.HandleConnectionDown(errors.New("broker gone"))

	if got := e.Status("alpha01"); got != liveness.StatusOffline {
		t.Fatalf("after disconnect: status %s, want offline", got)
	}
	snap := e.MissionSnapshot("alpha01")
	if snap.State != mission.StateError || snap.EndReason != mission.ReasonChannelLoss {
		t.Fatalf("after disconnect: %s/%s, want error/channel_loss", snap.State, snap.EndReason)
	}
	records, err := e.db.ListMissions("alpha01", 10)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(records) != 1 || records[0].Outcome != "error" || records[0].Reason != mission.ReasonChannelLoss {
		t.Fatalf("mission records = %+v, want one error/channel_loss", records)
	}
}

func TestPathTelemetryEmitsEvent(t *testing.T) {
	e, _ := testEngine(t)

	var paths []PathUpdatedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		paths = append(paths, evt.Payload.(PathUpdatedEvent))
	}, EventPathUpdated)

	raw := []any{
		map[string]any{"latitude": 37.1, "longitude": -122.1},
		map[string]any{"latitude": 37.2, "longitude": -122.2},
	}
	e.HandleTelemetry("alpha01", wire.ChannelPathGPS, raw, time.Now())

	if len(paths) != 1 || len(paths[0].Points) != 2 {
		t.Fatalf("path events = %+v, want one with 2 points", paths)
	}
}

func TestQuickNavRequiresOnline(t *testing.T) {
	e, sender := testEngine(t)
	p := telemetry.GeoPoint{Latitude: 37.1, Longitude: -122.1}

	if err := e.QuickNav("alpha01", p); !errors.Is(err, mission.ErrRobotOffline) {
		t.Fatalf("QuickNav offline: err = %v, want ErrRobotOffline", err)
	}
	if len(sender.commands) != 0 {
		t.Fatalf("sent %d commands while offline, want 0", len(sender.commands))
	}

	heartbeat(e, "alpha01", time.Now())
	if err := e.QuickNav("alpha01", p); err != nil {
		t.Fatalf("QuickNav online: %v", err)
	}
	payload := sender.commands[0].Payload.(wire.ServerCommand)
	if payload.CustomerLocation != payload.StoreLocation {
		t.Fatalf("quick nav customer %+v != target %+v", payload.CustomerLocation, payload.StoreLocation)
	}
}

func TestEmergencyStopWorksOffline(t *testing.T) {
	e, sender := testEngine(t)

	if err := e.EmergencyStop("alpha01"); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}
	if len(sender.commands) != 2 {
		t.Fatalf("sent %d commands, want e-stop + cancel", len(sender.commands))
	}
	if sender.commands[0].Kind != wire.CommandJoystick || sender.commands[1].Kind != wire.CommandServer {
		t.Fatalf("command kinds = %s, %s", sender.commands[0].Kind, sender.commands[1].Kind)
	}
	joy := sender.commands[0].Payload.(wire.JoystickCommand)
	if !joy.EStop {
		t.Fatalf("joystick payload %+v, want e_stop set", joy)
	}
	srv := sender.commands[1].Payload.(wire.ServerCommand)
	if srv.ServerCmdState != wire.DirectiveCancel {
		t.Fatalf("server directive = %d, want cancel", srv.ServerCmdState)
	}
}

func TestEmergencyStopFaultsActiveMission(t *testing.T) {
	e, _ := testEngine(t)
	heartbeat(e, "alpha01", time.Now())
	if err := e.AddWaypoint("alpha01", telemetry.GeoPoint{Latitude: 37.1, Longitude: -122.1}); err != nil {
		t.Fatalf("AddWaypoint: %v", err)
	}
	e.SetCustomer("alpha01", telemetry.GeoPoint{Latitude: 37.3, Longitude: -122.3})
	if err := e.StartMission("alpha01"); err != nil {
		t.Fatalf("StartMission: %v", err)
	}

	if err := e.EmergencyStop("alpha01"); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}
	snap := e.MissionSnapshot("alpha01")
	if snap.State != mission.StateError || snap.EndReason != mission.ReasonEmergency {
		t.Fatalf("after e-stop: %s/%s, want error/emergency_stop", snap.State, snap.EndReason)
	}
}

func TestBootstrapState(t *testing.T) {
	e, _ := testEngine(t)
	heartbeat(e, "alpha01", time.Now())

	st := e.BootstrapState()
	if _, ok := st.Robots["alpha01"]; !ok {
		t.Fatalf("bootstrap missing alpha01: %+v", st.Robots)
	}
	if st.Statuses["alpha01"] != liveness.StatusOnline {
		t.Fatalf("bootstrap status = %s, want online", st.Statuses["alpha01"])
	}
	if len(st.Channels) == 0 {
		t.Fatal("bootstrap has no expected channels")
	}
}
