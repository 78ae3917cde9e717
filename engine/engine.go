package engine

import (
	"log"
	"sync"
	"time"

	"fleetconsole/config"
	"fleetconsole/liveness"
	"fleetconsole/mission"
	"fleetconsole/store"
	"fleetconsole/telemetry"
	"fleetconsole/wire"
)

type LogFunc func(format string, args ...any)

// CommandSender is what the engine emits commands through; the
// messaging commander implements it.
type CommandSender interface {
	Send(cmd wire.Command, source string) error
}

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Cache      *telemetry.Cache
	Mirror     *telemetry.Mirror // nil when redis is disabled
	Commander  CommandSender
	LogFunc    LogFunc
}

// Engine owns the console session state: telemetry cache, liveness
// tracker and one sequencer per robot. Every transition (inbound
// telemetry, timer tick, operator action, connection loss) runs under
// one mutex, so no two transitions ever interleave.
type Engine struct {
	mu sync.Mutex

	cfg        *config.Config
	configPath string
	db         *store.DB
	cache      *telemetry.Cache
	mirror     *telemetry.Mirror
	commander  CommandSender
	tracker    *liveness.Tracker
	sequencers map[string]*mission.Sequencer
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}
	now        func() time.Time
	brokerUp   bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		cache:      c.Cache,
		mirror:     c.Mirror,
		commander:  c.Commander,
		tracker:    liveness.NewTracker(c.AppConfig.Fleet.OfflineThreshold),
		sequencers: make(map[string]*mission.Sequencer),
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
		now:        time.Now,
	}
}

func (e *Engine) Start() {
	e.wireEventHandlers()
	go e.statusTickLoop()
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB             { return e.db }
func (e *Engine) AppConfig() *config.Config { return e.cfg }
func (e *Engine) ConfigPath() string        { return e.configPath }
func (e *Engine) Cache() *telemetry.Cache   { return e.cache }

// statusTickLoop re-derives every robot's status on a fixed period, so
// a robot that simply stops talking still flips to offline.
func (e *Engine) statusTickLoop() {
	ticker := time.NewTicker(e.cfg.Fleet.StatusTick)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.mu.Lock()
			e.evaluateLivenessLocked()
			e.mu.Unlock()
		}
	}
}

// --- messaging.TelemetryHandler ---

// HandleTelemetry is the inbound hot path: cache write, liveness
// re-evaluation, then channel-specific reactions (arrival
// confirmations, path updates).
func (e *Engine) HandleTelemetry(robotID, channel string, payload any, arrivedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	known := false
	for _, id := range e.cache.Robots() {
		if id == robotID {
			known = true
			break
		}
	}
	// The arrival time is the heartbeat: the broker delivers robot
	// messages directly, there is no upstream bridge stamping its own.
	e.cache.Put(robotID, channel, payload, arrivedAt, arrivedAt)
	if !known {
		e.logFn("engine: new robot %s heard on %s, registering", robotID, channel)
		if err := e.db.RegisterRobot(robotID, robotID); err != nil {
			e.logFn("engine: register robot %s: %v", robotID, err)
		}
	}

	entry, _ := e.cache.Get(robotID, channel)
	e.Events.Emit(Event{Type: EventTelemetryUpdated, Payload: TelemetryUpdatedEvent{
		RobotID:  robotID,
		Channel:  channel,
		Entry:    entry,
		LastSeen: e.cache.LastSeen(robotID),
	}})
	if e.mirror != nil {
		go e.mirrorEntry(robotID, channel, entry)
	}

	e.evaluateLivenessLocked()

	switch channel {
	case e.cfg.Fleet.StatusChannel:
		if code, ok := wire.Confirmation(payload); ok && code == wire.ConfirmationArrived {
			if seq, ok := e.sequencers[robotID]; ok {
				seq.Confirm()
			}
		}
	case wire.ChannelPathGPS:
		points, err := telemetry.NormalizePath(payload)
		if err != nil {
			e.logFn("engine: %s: %v", robotID, err)
		}
		e.Events.Emit(Event{Type: EventPathUpdated, Payload: PathUpdatedEvent{
			RobotID: robotID,
			Points:  points,
		}})
	}
}

func (e *Engine) HandleConnectionUp() {
	e.mu.Lock()
	e.brokerUp = true
	e.mu.Unlock()
	e.logFn("engine: broker connection up")
	e.Events.Emit(Event{Type: EventChannelUp, Payload: ConnectionEvent{Detail: "broker connected"}})
}

// BrokerConnected reports whether the telemetry link is currently up.
func (e *Engine) BrokerConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.brokerUp
}

// HandleConnectionDown forces every robot offline and faults any
// active mission. Statuses recover on their own as telemetry resumes.
func (e *Engine) HandleConnectionDown(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.brokerUp = false
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	e.logFn("engine: broker connection lost: %s", detail)
	e.applyStatusChangesLocked(e.tracker.ForceOffline(e.cache))
	for _, seq := range e.sequencers {
		seq.Fault(mission.ReasonChannelLoss)
	}
	e.Events.Emit(Event{Type: EventChannelDown, Payload: ConnectionEvent{Detail: detail}})
}

// --- liveness ---

func (e *Engine) evaluateLivenessLocked() {
	e.applyStatusChangesLocked(e.tracker.Evaluate(e.cache, e.now()))
}

func (e *Engine) applyStatusChangesLocked(changes []liveness.Change) {
	for _, ch := range changes {
		e.logFn("engine: %s status %s -> %s", ch.RobotID, ch.From, ch.To)
		if seq, ok := e.sequencers[ch.RobotID]; ok {
			seq.OnStatusChange(ch.To == liveness.StatusOnline)
		}
		e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{
			RobotID: ch.RobotID,
			From:    ch.From,
			To:      ch.To,
		}})
		if e.mirror != nil {
			go e.mirrorStatus(ch.RobotID, string(ch.To))
		}
	}
}

// Status returns the robot's current liveness status.
func (e *Engine) Status(robotID string) liveness.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Status(robotID)
}

// --- operator actions ---

// sequencerLocked lazily builds the robot's sequencer. Callers hold
// the engine mutex; so does every sequencer callback, which is what
// lets the gate read the tracker without further locking.
func (e *Engine) sequencerLocked(robotID string) *mission.Sequencer {
	seq, ok := e.sequencers[robotID]
	if !ok {
		seq = mission.NewSequencer(robotID, &missionEmitter{engine: e}, &trackerGate{engine: e})
		e.sequencers[robotID] = seq
	}
	return seq
}

func (e *Engine) AddWaypoint(robotID string, p telemetry.GeoPoint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencerLocked(robotID).AddWaypoint(p)
}

func (e *Engine) DeleteWaypoint(robotID string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencerLocked(robotID).DeleteWaypoint(index)
}

func (e *Engine) SetCustomer(robotID string, p telemetry.GeoPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sequencerLocked(robotID).SetCustomer(p)
}

func (e *Engine) StartMission(robotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencerLocked(robotID).Start()
}

func (e *Engine) StopMission(robotID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sequencerLocked(robotID).Stop()
}

func (e *Engine) ClearMission(robotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencerLocked(robotID).Clear()
}

func (e *Engine) MissionSnapshot(robotID string) mission.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencerLocked(robotID).Snapshot()
}

// QuickNav sends a one-off navigate command outside any mission. The
// point doubles as the customer location, mirroring a single-stop run.
func (e *Engine) QuickNav(robotID string, p telemetry.GeoPoint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tracker.Status(robotID) != liveness.StatusOnline {
		return mission.ErrRobotOffline
	}
	loc := wire.Vec3{X: p.Latitude, Y: p.Longitude}
	return e.sendLocked(wire.NavigateCommand(robotID, loc, loc), store.CommandSourceOperator)
}

// EmergencyStop sends both an e-stop joystick command and a server
// cancel, and faults any active mission. It does not require the robot
// to be online: a stale status must never block a stop.
func (e *Engine) EmergencyStop(robotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logFn("engine: EMERGENCY STOP for %s", robotID)
	if err := e.sendLocked(wire.EStopCommand(robotID), store.CommandSourceOperator); err != nil {
		return err
	}
	err := e.sendLocked(wire.CancelCommand(robotID), store.CommandSourceOperator)
	if seq, ok := e.sequencers[robotID]; ok {
		seq.Fault(mission.ReasonEmergency)
	}
	return err
}

// SetLid opens or closes the robot's cargo lid.
func (e *Engine) SetLid(robotID string, open bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tracker.Status(robotID) != liveness.StatusOnline {
		return mission.ErrRobotOffline
	}
	return e.sendLocked(wire.LidCommand(robotID, open), store.CommandSourceOperator)
}

// CancelRobotTask sends a server cancel and faults any active mission.
func (e *Engine) CancelRobotTask(robotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.sendLocked(wire.CancelCommand(robotID), store.CommandSourceOperator)
	if seq, ok := e.sequencers[robotID]; ok {
		seq.Stop()
	}
	return err
}

func (e *Engine) sendLocked(cmd wire.Command, source string) error {
	if err := e.commander.Send(cmd, source); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventCommandSent, Payload: CommandSentEvent{
		RobotID: cmd.RobotID,
		Kind:    cmd.Kind,
		Source:  source,
	}})
	return nil
}

// --- bootstrap reads ---

// RobotOverview is one row of the fleet list.
type RobotOverview struct {
	RobotID  string          `json:"robot_id"`
	Status   liveness.Status `json:"status"`
	LastSeen time.Time       `json:"last_seen"`
	Channels []string        `json:"channels"`
}

func (e *Engine) Overview() []RobotOverview {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []RobotOverview
	for _, id := range e.cache.Robots() {
		out = append(out, RobotOverview{
			RobotID:  id,
			Status:   e.tracker.Status(id),
			LastSeen: e.cache.LastSeen(id),
			Channels: e.cache.KnownChannels(id),
		})
	}
	return out
}

// InitialState is the full console bootstrap pushed to a browser when
// it connects.
type InitialState struct {
	Robots   map[string]telemetry.RobotSnapshot `json:"robots"`
	Statuses map[string]liveness.Status         `json:"statuses"`
	Missions map[string]mission.Snapshot        `json:"missions"`
	Channels []string                           `json:"expected_channels"`
}

func (e *Engine) BootstrapState() InitialState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := InitialState{
		Robots:   e.cache.Snapshot(),
		Statuses: make(map[string]liveness.Status),
		Missions: make(map[string]mission.Snapshot),
		Channels: e.cfg.Fleet.ExpectedChannels,
	}
	for _, id := range e.cache.Robots() {
		st.Statuses[id] = e.tracker.Status(id)
	}
	for id, seq := range e.sequencers {
		st.Missions[id] = seq.Snapshot()
	}
	return st
}

func (e *Engine) mirrorEntry(robotID, channel string, entry telemetry.Entry) {
	ctx, cancel := mirrorContext()
	defer cancel()
	if err := e.mirror.SetEntry(ctx, robotID, channel, entry); err != nil {
		e.logFn("engine: mirror %s/%s: %v", robotID, channel, err)
	}
}

func (e *Engine) mirrorStatus(robotID, status string) {
	ctx, cancel := mirrorContext()
	defer cancel()
	if err := e.mirror.SetStatus(ctx, robotID, status, e.cache.LastSeen(robotID)); err != nil {
		e.logFn("engine: mirror status %s: %v", robotID, err)
	}
}
