package heating

import (
	"fmt"
	"time"

	"github.com/emberhaus/ember-core/internal/schedule"
	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// Manager owns every room controller and routes entity state changes
// to the rooms that care about them. It is the single integration
// point between the entity store and the per-room actors.
type Manager struct {
	cfg       *Config
	evaluator *tempexpr.Evaluator
	states    StateGetter
	logger    Logger

	controllers []*Controller
	byRoom      map[string]*Controller

	// onRescheduleEntity fires when a configured reschedule entity
	// changes state. Set before Start; the dispatcher debounces it.
	onRescheduleEntity func(entityID string)
}

// NewManager builds controllers for every configured room.
//
// Parameters:
//   - cfg: parsed heating configuration
//   - evaluator: expression evaluator shared by all rooms
//   - services: platform service access for thermostat commands
//   - states: entity state access for verification and routing
//   - publisher: room snapshot publisher; may be nil
//   - recorder: command journal; may be nil
//   - logger: may be nil
func NewManager(cfg *Config, evaluator *tempexpr.Evaluator, services ServiceCaller, states StateGetter, publisher SnapshotPublisher, recorder Recorder, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	m := &Manager{
		cfg:       cfg,
		evaluator: evaluator,
		states:    states,
		logger:    logger,
		byRoom:    make(map[string]*Controller, len(cfg.Rooms)),
	}

	actuator := NewActuator(services, states, recorder, logger)
	matcher := schedule.NewMatcher(evaluator, logger)

	for _, room := range cfg.Rooms {
		ctrl := NewController(room, cfg.OffTemp, matcher, actuator, publisher, logger)
		m.controllers = append(m.controllers, ctrl)
		m.byRoom[room.Name] = ctrl
	}
	return m
}

// OnRescheduleEntity registers the reschedule-entity callback. Must be
// called before Start.
func (m *Manager) OnRescheduleEntity(fn func(entityID string)) {
	m.onRescheduleEntity = fn
}

// Start launches all room controllers and seeds each with its initial
// inputs: current window sensor states first, then either the master
// switch (when off) or a forced full reschedule.
func (m *Manager) Start() {
	masterOff := m.cfg.MasterSwitch != "" &&
		m.states.EntityState(m.cfg.MasterSwitch) == "off"

	for _, ctrl := range m.controllers {
		ctrl.Start()

		room := m.cfg.Room(ctrl.Name())
		for _, sensor := range room.WindowSensors {
			if state := m.states.EntityState(sensor.EntityID); state != "" {
				ctrl.WindowChanged(sensor.EntityID, state)
			}
		}
		if masterOff {
			ctrl.MasterChanged(false)
			continue
		}
		ctrl.Reschedule(true, true)
	}

	m.logger.Info("heating manager started",
		"rooms", len(m.controllers), "master_off", masterOff)
}

// Stop shuts all room controllers down and blocks until their loops
// and in-flight commands have finished.
func (m *Manager) Stop() {
	for _, ctrl := range m.controllers {
		ctrl.Stop()
	}
}

// EntityChanged routes one entity state change. Wire it to the entity
// store's change notification.
func (m *Manager) EntityChanged(entityID, value string) {
	if m.cfg.MasterSwitch != "" && entityID == m.cfg.MasterSwitch {
		on := value == "on"
		m.logger.Info("master switch changed", "on", on)
		for _, ctrl := range m.controllers {
			ctrl.MasterChanged(on)
		}
		return
	}

	for _, entity := range m.cfg.RescheduleEntities {
		if entity == entityID && m.onRescheduleEntity != nil {
			m.onRescheduleEntity(entityID)
			break
		}
	}

	for _, ctrl := range m.controllers {
		room := m.cfg.Room(ctrl.Name())
		if room.WindowSensor(entityID) != nil {
			ctrl.WindowChanged(entityID, value)
		}
		if therm := room.Thermostat(entityID); therm != nil {
			if target, ok := m.reportedTarget(therm); ok {
				ctrl.ThermostatReported(entityID, target)
			}
		}
	}
}

// reportedTarget reads a thermostat's current device-level target from
// its state attributes.
func (m *Manager) reportedTarget(therm *Thermostat) (tempexpr.Result, bool) {
	opmode, _ := m.states.EntityAttribute(therm.EntityID, therm.OpmodeStateAttr).(string)
	if opmode == therm.OpmodeOff {
		return tempexpr.Off(), true
	}
	value, ok := floatValue(m.states.EntityAttribute(therm.EntityID, therm.TempStateAttr))
	if !ok {
		return tempexpr.Result{}, false
	}
	return tempexpr.Numeric(value), true
}

// SetRoomTemp applies a temperature override to one room, typically
// from a set-temperature event.
//
// The temperature may be a literal or, when untrusted expressions are
// enabled, an expression evaluated against the current entity state.
//
// Parameters:
//   - room: room name
//   - temp: literal or expression
//   - delayMinutes: override lifetime; nil uses the room default
//   - force: resend even if the target is already in effect
func (m *Manager) SetRoomTemp(room string, temp any, delayMinutes *int, force bool) error {
	ctrl, ok := m.byRoom[room]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, room)
	}

	compiled, err := m.evaluator.CompileUntrusted(temp)
	if err != nil {
		return err
	}
	result, err := m.evaluator.Evaluate(compiled, time.Now())
	if err != nil {
		return err
	}
	if !result.IsTarget() {
		return fmt.Errorf("%w: %v does not yield a temperature", ErrCommandFailed, temp)
	}

	ctrl.SetTemp(result, delayMinutes, force)
	return nil
}

// RescheduleRoom triggers a hard reschedule of one room, or of every
// room when name is empty.
func (m *Manager) RescheduleRoom(name string) error {
	if name == "" {
		m.RescheduleAll(true, false)
		return nil
	}
	ctrl, ok := m.byRoom[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, name)
	}
	ctrl.Reschedule(true, false)
	return nil
}

// RescheduleAll re-evaluates every room's schedule. Soft reschedules
// (the periodic tick) leave overridden and window-open rooms alone.
func (m *Manager) RescheduleAll(hard, force bool) {
	for _, ctrl := range m.controllers {
		ctrl.Reschedule(hard, force)
	}
}

// Snapshots returns the current state of every room, in config order.
func (m *Manager) Snapshots() []Snapshot {
	snaps := make([]Snapshot, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		snaps = append(snaps, ctrl.Snapshot())
	}
	return snaps
}
