package heating

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberhaus/ember-core/internal/schedule"
	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// SnapshotPublisher publishes a room's state snapshot, usually to a
// retained MQTT topic. Satisfied by *platform.Store.
type SnapshotPublisher interface {
	PublishRoomState(room string, payload any) error
}

// ─── Controller events ───────────────────────────────────────────────────────

type event interface{ isEvent() }

type evReschedule struct {
	// hard clears an active override; soft ticks leave it alone.
	hard  bool
	force bool
}

type evSetTemp struct {
	target tempexpr.Result
	// delay overrides the room's reschedule delay in minutes; nil uses
	// the room default, 0 makes the override open-ended.
	delay *int
	force bool
}

type evWindowRaw struct {
	entityID string
	open     bool
}

type evWindowSettled struct {
	entityID string
	open     bool
}

type evMaster struct{ on bool }

type evThermostatReported struct {
	entityID string
	// target is the device-level state the thermostat reported.
	target tempexpr.Result
}

type evOverrideExpired struct{}

type evCommandResult struct {
	entityID string
	sent     string
	outcome  string
}

type evSnapshotReq struct{ reply chan Snapshot }

func (evReschedule) isEvent()         {}
func (evSetTemp) isEvent()            {}
func (evWindowRaw) isEvent()          {}
func (evWindowSettled) isEvent()      {}
func (evMaster) isEvent()             {}
func (evThermostatReported) isEvent() {}
func (evOverrideExpired) isEvent()    {}
func (evCommandResult) isEvent()      {}
func (evSnapshotReq) isEvent()        {}

// ─── Controller ──────────────────────────────────────────────────────────────

// Controller runs one room's scheduling as a single goroutine that
// owns the room's runtime state. All external inputs (ticks, events,
// sensor changes) are serialized through its event channel; thermostat
// commands run in per-thermostat goroutines so a slow or retrying
// device never blocks the room.
type Controller struct {
	room      *Room
	offTemp   tempexpr.Result
	matcher   *schedule.Matcher
	actuator  *Actuator
	publisher SnapshotPublisher
	logger    Logger

	// timeUnit scales sensor settle delays; one second in production.
	timeUnit time.Duration
	now      func() time.Time

	events chan event
	done   chan struct{}
	stop   sync.Once
	loopWG sync.WaitGroup
	cmdWG  sync.WaitGroup

	// Everything below is owned by the run loop.
	state         RuntimeState
	masterOn      bool
	inflight      map[string]context.CancelCauseFunc
	windowTimers  map[string]*time.Timer
	overrideTimer *time.Timer
}

// NewController creates a controller for one room. publisher and
// logger may be nil.
func NewController(room *Room, offTemp tempexpr.Result, matcher *schedule.Matcher, actuator *Actuator, publisher SnapshotPublisher, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		room:      room,
		offTemp:   offTemp,
		matcher:   matcher,
		actuator:  actuator,
		publisher: publisher,
		logger:    logger,
		timeUnit:  time.Second,
		now:       time.Now,
		events:    make(chan event, 16),
		done:      make(chan struct{}),
		state: RuntimeState{
			Mode:        ModeScheduled,
			LastSent:    make(map[string]string),
			OpenWindows: make(map[string]bool),
		},
		masterOn:     true,
		inflight:     make(map[string]context.CancelCauseFunc),
		windowTimers: make(map[string]*time.Timer),
	}
}

// Name returns the room's config name.
func (c *Controller) Name() string { return c.room.Name }

// Start launches the run loop. The caller is expected to follow up
// with the room's initial inputs (window states, master switch, a
// forced reschedule) in the order it wants them applied.
func (c *Controller) Start() {
	c.loopWG.Add(1)
	go c.run()
}

// Stop shuts the controller down: pending sensor timers are dropped,
// in-flight commands are cancelled, and the call blocks until the run
// loop and all command goroutines have finished.
func (c *Controller) Stop() {
	c.stop.Do(func() { close(c.done) })
	c.loopWG.Wait()
	c.cmdWG.Wait()
}

// Reschedule re-evaluates the room's schedule. A hard reschedule
// clears an active override; a soft one (the periodic tick) leaves
// overridden and window-open rooms untouched.
func (c *Controller) Reschedule(hard, force bool) {
	c.post(evReschedule{hard: hard, force: force})
}

// SetTemp applies a temperature override.
//
// Parameters:
//   - target: the room-level target
//   - delayMinutes: override lifetime; nil uses the room default,
//     0 keeps the override until the next hard reschedule
//   - force: resend even if the target is already in effect
func (c *Controller) SetTemp(target tempexpr.Result, delayMinutes *int, force bool) {
	c.post(evSetTemp{target: target, delay: delayMinutes, force: force})
}

// WindowChanged feeds a window sensor state change. The change only
// takes effect after the sensor's settle delay.
func (c *Controller) WindowChanged(entityID, state string) {
	sensor := c.room.WindowSensor(entityID)
	if sensor == nil {
		return
	}
	c.post(evWindowRaw{entityID: entityID, open: sensor.IsOpen(state)})
}

// MasterChanged feeds a master switch transition.
func (c *Controller) MasterChanged(on bool) {
	c.post(evMaster{on: on})
}

// ThermostatReported feeds a thermostat's reported device-level state,
// used to detect manual adjustments and replicate them.
func (c *Controller) ThermostatReported(entityID string, target tempexpr.Result) {
	c.post(evThermostatReported{entityID: entityID, target: target})
}

// Snapshot returns the room's current state. Returns the zero Snapshot
// if the controller has stopped.
func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case c.events <- evSnapshotReq{reply: reply}:
	case <-c.done:
		return Snapshot{}
	}
	select {
	case snap := <-reply:
		return snap
	case <-c.done:
		return Snapshot{}
	}
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// ─── Run loop ────────────────────────────────────────────────────────────────

func (c *Controller) run() {
	defer c.loopWG.Done()
	defer c.cleanup()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.events:
			switch e := ev.(type) {
			case evReschedule:
				c.handleReschedule(e.hard, e.force)
			case evSetTemp:
				c.handleSetTemp(e)
			case evWindowRaw:
				c.handleWindowRaw(e)
			case evWindowSettled:
				c.handleWindowSettled(e)
			case evMaster:
				c.handleMaster(e.on)
			case evThermostatReported:
				c.handleThermostatReported(e)
			case evOverrideExpired:
				c.handleOverrideExpired()
			case evCommandResult:
				c.handleCommandResult(e)
			case evSnapshotReq:
				e.reply <- c.snapshot()
			}
		}
	}
}

func (c *Controller) cleanup() {
	for _, timer := range c.windowTimers {
		timer.Stop()
	}
	if c.overrideTimer != nil {
		c.overrideTimer.Stop()
	}
	for _, cancel := range c.inflight {
		cancel(nil)
	}
}

func (c *Controller) handleReschedule(hard, force bool) {
	if !c.masterOn || c.state.Mode == ModeWindowOpen {
		return
	}
	if !hard && c.state.Mode == ModeOverridden {
		return
	}
	if hard {
		c.clearOverride()
		c.state.Mode = ModeScheduled
	}

	outcome := c.matcher.Resolve(c.room.Schedule, c.now())
	if !outcome.Matched {
		c.logger.Debug("no schedule rule matches", "room", c.room.Name)
		c.publishSnapshot()
		return
	}
	c.apply(outcome.Result, "schedule", force)
}

func (c *Controller) handleSetTemp(e evSetTemp) {
	if !c.masterOn {
		c.logger.Info("set_temp ignored, master switch off", "room", c.room.Name)
		return
	}
	if c.state.Mode == ModeWindowOpen {
		c.logger.Info("set_temp ignored, window open", "room", c.room.Name)
		return
	}

	c.startOverride(e.delay)
	c.apply(e.target, "override", e.force)
}

// startOverride switches the room into overridden mode and arms the
// auto-reschedule timer.
func (c *Controller) startOverride(delayMinutes *int) {
	c.clearOverride()
	c.state.Mode = ModeOverridden

	minutes := c.room.RescheduleDelay
	if delayMinutes != nil {
		minutes = *delayMinutes
	}
	if minutes <= 0 {
		return
	}
	d := time.Duration(minutes) * 60 * c.timeUnit
	c.state.OverrideDeadline = c.now().Add(d)
	c.overrideTimer = time.AfterFunc(d, func() {
		c.post(evOverrideExpired{})
	})
}

func (c *Controller) clearOverride() {
	if c.overrideTimer != nil {
		c.overrideTimer.Stop()
		c.overrideTimer = nil
	}
	c.state.OverrideDeadline = time.Time{}
}

func (c *Controller) handleOverrideExpired() {
	if c.state.Mode != ModeOverridden {
		return
	}
	c.logger.Info("override expired, rescheduling", "room", c.room.Name)
	c.handleReschedule(true, false)
}

func (c *Controller) handleWindowRaw(e evWindowRaw) {
	if timer, ok := c.windowTimers[e.entityID]; ok {
		timer.Stop()
		delete(c.windowTimers, e.entityID)
	}
	// A transition that bounces back inside the settle delay cancels
	// out entirely.
	if c.state.OpenWindows[e.entityID] == e.open {
		return
	}

	sensor := c.room.WindowSensor(e.entityID)
	if sensor == nil {
		return
	}
	if sensor.Delay <= 0 {
		c.handleWindowSettled(evWindowSettled{entityID: e.entityID, open: e.open})
		return
	}
	c.windowTimers[e.entityID] = time.AfterFunc(time.Duration(sensor.Delay)*c.timeUnit, func() {
		c.post(evWindowSettled{entityID: e.entityID, open: e.open})
	})
}

func (c *Controller) handleWindowSettled(e evWindowSettled) {
	delete(c.windowTimers, e.entityID)
	if c.state.OpenWindows[e.entityID] == e.open {
		return
	}
	c.state.OpenWindows[e.entityID] = e.open

	if !c.masterOn {
		return
	}

	if e.open {
		if c.state.Mode == ModeWindowOpen {
			c.publishSnapshot()
			return
		}
		c.logger.Info("window open, heating off", "room", c.room.Name, "sensor", e.entityID)
		c.clearOverride()
		c.state.Mode = ModeWindowOpen
		c.apply(c.offTemp, "window", false)
		return
	}

	if c.state.AnyWindowOpen() {
		c.publishSnapshot()
		return
	}
	// Last window closed: back to the schedule, forcing a resend in
	// case the thermostat was adjusted while heating was off.
	c.logger.Info("all windows closed, rescheduling", "room", c.room.Name)
	c.state.Mode = ModeScheduled
	c.handleReschedule(true, true)
}

func (c *Controller) handleMaster(on bool) {
	if on == c.masterOn {
		return
	}
	c.masterOn = on

	if !on {
		c.logger.Info("master switch off, heating off", "room", c.room.Name)
		c.clearOverride()
		c.state.Mode = ModeScheduled
		c.apply(c.offTemp, "master", false)
		return
	}

	c.logger.Info("master switch on, rescheduling", "room", c.room.Name)
	if c.state.AnyWindowOpen() {
		c.state.Mode = ModeWindowOpen
		c.apply(c.offTemp, "window", false)
		return
	}
	c.handleReschedule(true, true)
}

func (c *Controller) handleThermostatReported(e evThermostatReported) {
	if !c.masterOn || c.state.Mode == ModeWindowOpen {
		return
	}
	therm := c.room.Thermostat(e.entityID)
	if therm == nil || therm.IgnoreUpdates {
		return
	}

	// Translate the device-level report back to a room-level target.
	roomTarget := e.target
	if roomTarget.Kind == tempexpr.KindNumeric {
		roomTarget = tempexpr.Numeric(roomTarget.Value - therm.Delta)
	}
	if !roomTarget.IsTarget() {
		return
	}
	if c.state.Current != nil && c.state.Current.String() == roomTarget.String() {
		return // echo of our own command
	}

	c.logger.Info("manual thermostat adjustment",
		"room", c.room.Name, "entity", e.entityID, "target", roomTarget.String())

	c.startOverride(nil)
	c.state.Current = &roomTarget
	c.state.LastSent[e.entityID] = e.target.String()

	if c.room.ReplicateChanges {
		for i := range c.room.Thermostats {
			if c.room.Thermostats[i].EntityID == e.entityID {
				continue
			}
			c.dispatch(&c.room.Thermostats[i], roomTarget, "override", false)
		}
	}
	c.publishSnapshot()
}

// apply sets a room-level target on every thermostat, skipping any
// whose last issued command already carries the same device-level
// target unless force is set.
func (c *Controller) apply(target tempexpr.Result, source string, force bool) {
	c.state.Current = &target
	for i := range c.room.Thermostats {
		c.dispatch(&c.room.Thermostats[i], target, source, force)
	}
	c.publishSnapshot()
}

func (c *Controller) dispatch(therm *Thermostat, roomTarget tempexpr.Result, source string, force bool) {
	device := therm.EffectiveTarget(roomTarget)
	key := device.String()
	if !force && c.state.LastSent[therm.EntityID] == key {
		return
	}
	c.state.LastSent[therm.EntityID] = key

	// A newer target supersedes any still-retrying command for the
	// same thermostat.
	if cancel, ok := c.inflight[therm.EntityID]; ok {
		cancel(errSuperseded)
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	c.inflight[therm.EntityID] = cancel

	cmd := Command{
		ID:         uuid.NewString(),
		Room:       c.room.Name,
		Thermostat: *therm,
		Target:     device,
		Source:     source,
	}
	c.cmdWG.Add(1)
	go func() {
		defer c.cmdWG.Done()
		defer cancel(nil)
		outcome, _ := c.actuator.Apply(ctx, cmd)
		c.post(evCommandResult{entityID: therm.EntityID, sent: key, outcome: outcome})
	}()
}

// handleCommandResult drops the last-sent record of a command that was
// never verified, so the next reschedule retries it instead of being
// skipped by the idempotence guard. A superseding command has already
// replaced the record and is left alone.
func (c *Controller) handleCommandResult(e evCommandResult) {
	if e.outcome == OutcomeVerified {
		return
	}
	if c.state.LastSent[e.entityID] == e.sent {
		delete(c.state.LastSent, e.entityID)
	}
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		Room:         c.room.Name,
		FriendlyName: c.room.FriendlyName,
		Mode:         c.state.Mode,
		UpdatedAt:    c.now(),
	}
	if c.state.Current != nil {
		snap.Target = c.state.Current.String()
	}
	for entity, open := range c.state.OpenWindows {
		if open {
			snap.OpenWindows = append(snap.OpenWindows, entity)
		}
	}
	sort.Strings(snap.OpenWindows)
	if !c.state.OverrideDeadline.IsZero() {
		deadline := c.state.OverrideDeadline
		snap.OverrideDeadline = &deadline
	}
	return snap
}

func (c *Controller) publishSnapshot() {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishRoomState(c.room.Name, c.snapshot()); err != nil {
		c.logger.Warn("snapshot publish failed", "room", c.room.Name, "error", err)
	}
}
