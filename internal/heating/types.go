package heating

import (
	"time"

	"github.com/emberhaus/ember-core/internal/schedule"
	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// Mode is a room's scheduling mode.
type Mode string

const (
	// ModeScheduled means the room follows its schedule.
	ModeScheduled Mode = "scheduled"

	// ModeOverridden means a manual or event-driven temperature is
	// active, optionally until a reschedule deadline.
	ModeOverridden Mode = "overridden"

	// ModeWindowOpen means an open window forces heating off,
	// regardless of schedule or override.
	ModeWindowOpen Mode = "window_open"
)

// Thermostat describes one controllable climate entity of a room.
//
// The service and attribute names are configuration-supplied strings;
// nothing here assumes a fixed platform vocabulary.
type Thermostat struct {
	// EntityID is the platform entity, e.g. "climate.living_room".
	EntityID string

	// Delta is an additive correction applied to every temperature
	// before it is sent to this thermostat.
	Delta float64

	// MinTemp is the minimum settable temperature. A target that would
	// fall below it switches the thermostat off instead. Nil disables
	// the clamp.
	MinTemp *float64

	// SetTempRetries is how many times a failed command is retried.
	// -1 retries indefinitely (still cancellable by a superseding
	// command).
	SetTempRetries int

	// SetTempRetryInterval is the pause between retries, in seconds.
	SetTempRetryInterval int

	// IgnoreUpdates suppresses change replication when this thermostat
	// reports a manually adjusted setpoint.
	IgnoreUpdates bool

	// Operation-mode vocabulary.
	OpmodeHeat        string // value meaning "heating", e.g. "heat"
	OpmodeOff         string // value meaning "off", e.g. "off"
	OpmodeService     string // service for mode changes, e.g. "climate/set_operation_mode"
	OpmodeServiceAttr string // payload attribute carrying the mode
	OpmodeStateAttr   string // state attribute reporting the mode

	// Temperature vocabulary.
	TempService     string // service for setpoint changes, e.g. "climate/set_temperature"
	TempServiceAttr string // payload attribute carrying the setpoint
	TempStateAttr   string // state attribute reporting the setpoint
}

// EffectiveTarget converts a room-level target into this thermostat's
// device-level target: the delta is applied and the minimum-temperature
// clamp maps too-low setpoints to Off.
func (t *Thermostat) EffectiveTarget(target tempexpr.Result) tempexpr.Result {
	if target.Kind != tempexpr.KindNumeric {
		return target
	}
	value := target.Value + t.Delta
	if t.MinTemp != nil && value < *t.MinTemp {
		return tempexpr.Off()
	}
	return tempexpr.Numeric(value)
}

// RetryBudget returns the maximum wall-clock time a command may spend
// retrying, or 0 for indefinite retry.
func (t *Thermostat) RetryBudget(timeUnit time.Duration) time.Duration {
	if t.SetTempRetries < 0 {
		return 0
	}
	return time.Duration(t.SetTempRetries*t.SetTempRetryInterval) * timeUnit
}

// WindowSensor describes one window/door sensor guarding a room.
type WindowSensor struct {
	// EntityID is the platform entity, e.g. "binary_sensor.window_living".
	EntityID string

	// Delay is the settle delay in seconds: a transition only counts
	// once the sensor has held the new state this long.
	Delay int

	// Inverted flips the sensor's polarity: when true, state "off"
	// means the window is open.
	Inverted bool
}

// IsOpen interprets a sensor state string under the sensor's polarity.
func (w *WindowSensor) IsOpen(state string) bool {
	return (state == "on") != w.Inverted
}

// Room groups the thermostats, window sensors and schedule of one room.
type Room struct {
	// Name is the config key, used in events and topics.
	Name string

	// FriendlyName is the display name, defaulting to Name.
	FriendlyName string

	// ReplicateChanges propagates a manual setpoint change on one
	// thermostat to the room's other thermostats.
	ReplicateChanges bool

	// RescheduleDelay is the default override lifetime in minutes.
	// 0 keeps overrides active until an explicit reschedule.
	RescheduleDelay int

	Thermostats   []Thermostat
	WindowSensors []WindowSensor
	Schedule      []schedule.Rule
}

// Thermostat returns the thermostat with the given entity id, or nil.
func (r *Room) Thermostat(entityID string) *Thermostat {
	for i := range r.Thermostats {
		if r.Thermostats[i].EntityID == entityID {
			return &r.Thermostats[i]
		}
	}
	return nil
}

// WindowSensor returns the sensor with the given entity id, or nil.
func (r *Room) WindowSensor(entityID string) *WindowSensor {
	for i := range r.WindowSensors {
		if r.WindowSensors[i].EntityID == entityID {
			return &r.WindowSensors[i]
		}
	}
	return nil
}

// RuntimeState is a room's mutable scheduling state, exclusively owned
// by the room's controller goroutine.
type RuntimeState struct {
	// Mode is the current scheduling mode.
	Mode Mode

	// Current is the room-level target currently in effect, nil until
	// the first target is applied. Used by the idempotence guard and
	// restored when a window closes without a schedule match.
	Current *tempexpr.Result

	// LastSent records, per thermostat entity, the device-level target
	// of the last command actually issued. Updated only when a command
	// is dispatched, never on idempotence-guard skips.
	LastSent map[string]string

	// OpenWindows tracks the settled open state per window sensor.
	OpenWindows map[string]bool

	// OverrideDeadline is when the active override auto-reschedules,
	// zero if the override has no deadline.
	OverrideDeadline time.Time
}

// AnyWindowOpen reports whether at least one sensor is settled open.
func (s *RuntimeState) AnyWindowOpen() bool {
	for _, open := range s.OpenWindows {
		if open {
			return true
		}
	}
	return false
}

// Snapshot is the JSON shape published on the room state topic and
// served by the status API.
type Snapshot struct {
	Room             string     `json:"room"`
	FriendlyName     string     `json:"friendly_name"`
	Mode             Mode       `json:"mode"`
	Target           string     `json:"target,omitempty"`
	OpenWindows      []string   `json:"open_windows,omitempty"`
	OverrideDeadline *time.Time `json:"override_deadline,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
