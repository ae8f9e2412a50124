package heating

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/emberhaus/ember-core/internal/schedule"
	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// Built-in defaults, applied beneath thermostat_defaults and
// window_sensor_defaults. Field names and default values are part of
// the external config contract.
const (
	defaultSetTempRetries       = 4
	defaultSetTempRetryInterval = 10
	defaultWindowSensorDelay    = 10
	defaultRescheduleDelay      = 60
	defaultOffTemp              = "off"

	defaultOpmodeHeat        = "heat"
	defaultOpmodeOff         = "off"
	defaultOpmodeService     = "climate/set_operation_mode"
	defaultOpmodeServiceAttr = "operation_mode"
	defaultOpmodeStateAttr   = "operation_mode"
	defaultTempService       = "climate/set_temperature"
	defaultTempServiceAttr   = "temperature"
	defaultTempStateAttr     = "temperature"
)

// Config is the parsed and validated heating configuration.
type Config struct {
	// MasterSwitch is the entity gating all scheduling; empty disables
	// the master switch feature.
	MasterSwitch string

	// OffTemp is the global off-temperature applied on master-off and
	// window-open (usually Off, but a numeric frost-guard works too).
	OffTemp tempexpr.Result

	// Debug raises log verbosity for scheduling decisions.
	Debug bool

	// UntrustedExpressions permits expressions in set-temperature
	// events. Off by default: event expressions fail closed.
	UntrustedExpressions bool

	// RescheduleEntities are entities whose state changes trigger a
	// debounced reschedule of all rooms.
	RescheduleEntities []string

	// ExpressionModules are named constant maps exposed to every
	// temperature expression.
	ExpressionModules map[string]map[string]any

	// Rooms in stable (name-sorted) order.
	Rooms []*Room
}

// Room returns the room with the given name, or nil.
func (c *Config) Room(name string) *Room {
	for _, room := range c.Rooms {
		if room.Name == name {
			return room
		}
	}
	return nil
}

// ─── Raw YAML shapes ─────────────────────────────────────────────────────────

type rawConfig struct {
	MasterSwitch         string                    `yaml:"master_switch"`
	OffTemp              any                       `yaml:"off_temp"`
	Debug                bool                      `yaml:"debug"`
	UntrustedExpressions bool                      `yaml:"untrusted_expressions"`
	ReplicateChanges     *bool                     `yaml:"replicate_changes"`
	RescheduleDelay      *int                      `yaml:"reschedule_delay"`
	RescheduleEntities   map[string]map[string]any `yaml:"reschedule_entities"`
	ExpressionModules    map[string]map[string]any `yaml:"expression_modules"`
	ThermostatDefaults   rawThermostat             `yaml:"thermostat_defaults"`
	WindowSensorDefaults rawWindowSensor           `yaml:"window_sensor_defaults"`
	Rooms                map[string]rawRoom        `yaml:"rooms"`
}

type rawRoom struct {
	FriendlyName     string                     `yaml:"friendly_name"`
	ReplicateChanges *bool                      `yaml:"replicate_changes"`
	RescheduleDelay  *int                       `yaml:"reschedule_delay"`
	Thermostats      map[string]rawThermostat   `yaml:"thermostats"`
	WindowSensors    map[string]rawWindowSensor `yaml:"window_sensors"`
	Schedule         []rawRule                  `yaml:"schedule"`
}

type rawThermostat struct {
	Delta                *float64 `yaml:"delta"`
	MinTemp              *float64 `yaml:"min_temp"`
	SetTempRetries       *int     `yaml:"set_temp_retries"`
	SetTempRetryInterval *int     `yaml:"set_temp_retry_interval"`
	IgnoreUpdates        *bool    `yaml:"ignore_updates"`
	OpmodeHeat           *string  `yaml:"opmode_heat"`
	OpmodeOff            *string  `yaml:"opmode_off"`
	OpmodeService        *string  `yaml:"opmode_service"`
	OpmodeServiceAttr    *string  `yaml:"opmode_service_attr"`
	OpmodeStateAttr      *string  `yaml:"opmode_state_attr"`
	TempService          *string  `yaml:"temp_service"`
	TempServiceAttr      *string  `yaml:"temp_service_attr"`
	TempStateAttr        *string  `yaml:"temp_state_attr"`
}

type rawWindowSensor struct {
	Delay    *int  `yaml:"delay"`
	Inverted *bool `yaml:"inverted"`
}

type rawRule struct {
	Temp        any    `yaml:"temp"`
	Name        string `yaml:"name"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	EndPlusDays *int   `yaml:"end_plus_days"`
	Years       any    `yaml:"years"`
	Months      any    `yaml:"months"`
	Days        any    `yaml:"days"`
	Weeks       any    `yaml:"weeks"`
	Weekdays    any    `yaml:"weekdays"`
}

// ─── Loading ─────────────────────────────────────────────────────────────────

// LoadConfig reads, validates and compiles the heating configuration.
//
// All temperature expressions compile here; a syntax error anywhere in
// the config aborts startup with ErrConfig rather than failing during
// scheduling.
//
// The returned evaluator carries the config's expression modules and
// untrusted-expressions flag, wired to the given state reader.
//
// Parameters:
//   - path: heating config file path (from config.yaml)
//   - states: entity state access for expressions; may be nil
//   - logger: expression evaluation logger; may be nil
//
// Returns:
//   - *Config: validated configuration
//   - *tempexpr.Evaluator: evaluator for schedule resolution
//   - error: wrapped ErrConfig on any schema or compile failure
func LoadConfig(path string, states tempexpr.StateReader, logger tempexpr.Logger) (*Config, *tempexpr.Evaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, path, err)
	}
	return parseConfig(data, states, logger)
}

func parseConfig(data []byte, states tempexpr.StateReader, logger tempexpr.Logger) (*Config, *tempexpr.Evaluator, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: parsing YAML: %w", ErrConfig, err)
	}

	cfg := &Config{
		MasterSwitch:         raw.MasterSwitch,
		Debug:                raw.Debug,
		UntrustedExpressions: raw.UntrustedExpressions,
		ExpressionModules:    raw.ExpressionModules,
	}

	// Global off temperature.
	offTemp := raw.OffTemp
	if offTemp == nil {
		offTemp = defaultOffTemp
	}
	parsedOff, ok := tempexpr.ParseLiteral(offTemp)
	if !ok || !parsedOff.IsTarget() {
		return nil, nil, fmt.Errorf("%w: off_temp %v is not a temperature or \"off\"", ErrConfig, raw.OffTemp)
	}
	cfg.OffTemp = parsedOff

	// Reschedule entities in stable order.
	for entity := range raw.RescheduleEntities {
		cfg.RescheduleEntities = append(cfg.RescheduleEntities, entity)
	}
	sort.Strings(cfg.RescheduleEntities)

	opts := []tempexpr.Option{
		tempexpr.WithUntrustedAllowed(raw.UntrustedExpressions),
	}
	if raw.ExpressionModules != nil {
		opts = append(opts, tempexpr.WithModules(raw.ExpressionModules))
	}
	if logger != nil {
		opts = append(opts, tempexpr.WithLogger(logger))
	}
	evaluator := tempexpr.New(states, opts...)

	globalReplicate := true
	if raw.ReplicateChanges != nil {
		globalReplicate = *raw.ReplicateChanges
	}
	globalRescheduleDelay := defaultRescheduleDelay
	if raw.RescheduleDelay != nil {
		globalRescheduleDelay = *raw.RescheduleDelay
	}

	if len(raw.Rooms) == 0 {
		return nil, nil, fmt.Errorf("%w: no rooms defined", ErrConfig)
	}

	names := make([]string, 0, len(raw.Rooms))
	for name := range raw.Rooms {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		room, err := buildRoom(name, raw.Rooms[name], &raw, globalReplicate, globalRescheduleDelay, evaluator)
		if err != nil {
			return nil, nil, err
		}
		cfg.Rooms = append(cfg.Rooms, room)
	}

	return cfg, evaluator, nil
}

func buildRoom(name string, raw rawRoom, global *rawConfig, replicate bool, rescheduleDelay int, evaluator *tempexpr.Evaluator) (*Room, error) {
	room := &Room{
		Name:             name,
		FriendlyName:     raw.FriendlyName,
		ReplicateChanges: replicate,
		RescheduleDelay:  rescheduleDelay,
	}
	if room.FriendlyName == "" {
		room.FriendlyName = name
	}
	if raw.ReplicateChanges != nil {
		room.ReplicateChanges = *raw.ReplicateChanges
	}
	if raw.RescheduleDelay != nil {
		room.RescheduleDelay = *raw.RescheduleDelay
	}
	if room.RescheduleDelay < 0 {
		return nil, fmt.Errorf("%w: rooms.%s.reschedule_delay must not be negative", ErrConfig, name)
	}

	if len(raw.Thermostats) == 0 {
		return nil, fmt.Errorf("%w: rooms.%s has no thermostats", ErrConfig, name)
	}

	thermNames := make([]string, 0, len(raw.Thermostats))
	for entity := range raw.Thermostats {
		thermNames = append(thermNames, entity)
	}
	sort.Strings(thermNames)
	for _, entity := range thermNames {
		therm, err := buildThermostat(entity, raw.Thermostats[entity], global.ThermostatDefaults)
		if err != nil {
			return nil, fmt.Errorf("%w: rooms.%s.thermostats.%s: %w", ErrConfig, name, entity, err)
		}
		room.Thermostats = append(room.Thermostats, therm)
	}

	sensorNames := make([]string, 0, len(raw.WindowSensors))
	for entity := range raw.WindowSensors {
		sensorNames = append(sensorNames, entity)
	}
	sort.Strings(sensorNames)
	for _, entity := range sensorNames {
		room.WindowSensors = append(room.WindowSensors,
			buildWindowSensor(entity, raw.WindowSensors[entity], global.WindowSensorDefaults))
	}

	for i, rawRule := range raw.Schedule {
		rule, err := buildRule(rawRule, evaluator)
		if err != nil {
			return nil, fmt.Errorf("%w: rooms.%s.schedule[%d]: %w", ErrConfig, name, i, err)
		}
		room.Schedule = append(room.Schedule, rule)
	}

	return room, nil
}

func buildThermostat(entity string, raw, defaults rawThermostat) (Thermostat, error) {
	therm := Thermostat{
		EntityID:             entity,
		Delta:                overlayFloat(raw.Delta, defaults.Delta, 0),
		MinTemp:              overlayFloatPtr(raw.MinTemp, defaults.MinTemp),
		SetTempRetries:       overlayInt(raw.SetTempRetries, defaults.SetTempRetries, defaultSetTempRetries),
		SetTempRetryInterval: overlayInt(raw.SetTempRetryInterval, defaults.SetTempRetryInterval, defaultSetTempRetryInterval),
		IgnoreUpdates:        overlayBool(raw.IgnoreUpdates, defaults.IgnoreUpdates, false),
		OpmodeHeat:           overlayString(raw.OpmodeHeat, defaults.OpmodeHeat, defaultOpmodeHeat),
		OpmodeOff:            overlayString(raw.OpmodeOff, defaults.OpmodeOff, defaultOpmodeOff),
		OpmodeService:        overlayString(raw.OpmodeService, defaults.OpmodeService, defaultOpmodeService),
		OpmodeServiceAttr:    overlayString(raw.OpmodeServiceAttr, defaults.OpmodeServiceAttr, defaultOpmodeServiceAttr),
		OpmodeStateAttr:      overlayString(raw.OpmodeStateAttr, defaults.OpmodeStateAttr, defaultOpmodeStateAttr),
		TempService:          overlayString(raw.TempService, defaults.TempService, defaultTempService),
		TempServiceAttr:      overlayString(raw.TempServiceAttr, defaults.TempServiceAttr, defaultTempServiceAttr),
		TempStateAttr:        overlayString(raw.TempStateAttr, defaults.TempStateAttr, defaultTempStateAttr),
	}

	if therm.SetTempRetries < -1 {
		return Thermostat{}, fmt.Errorf("set_temp_retries must be >= -1")
	}
	if therm.SetTempRetryInterval <= 0 {
		return Thermostat{}, fmt.Errorf("set_temp_retry_interval must be positive")
	}
	return therm, nil
}

func buildWindowSensor(entity string, raw, defaults rawWindowSensor) WindowSensor {
	return WindowSensor{
		EntityID: entity,
		Delay:    overlayInt(raw.Delay, defaults.Delay, defaultWindowSensorDelay),
		Inverted: overlayBool(raw.Inverted, defaults.Inverted, false),
	}
}

func buildRule(raw rawRule, evaluator *tempexpr.Evaluator) (schedule.Rule, error) {
	if raw.Temp == nil {
		return schedule.Rule{}, fmt.Errorf("missing temp")
	}

	compiled, err := evaluator.Compile(raw.Temp)
	if err != nil {
		return schedule.Rule{}, err
	}

	rule := schedule.Rule{
		Temp: compiled,
		Name: raw.Name,
	}

	if raw.Start != "" {
		rule.Start, err = schedule.ParseTimeOfDay(raw.Start)
		if err != nil {
			return schedule.Rule{}, err
		}
	}

	// A missing end makes the window run to the end of the day: end
	// stays 00:00 and the end-day offset defaults to 1 instead of 0.
	if raw.End != "" {
		rule.End, err = schedule.ParseTimeOfDay(raw.End)
		if err != nil {
			return schedule.Rule{}, err
		}
		if raw.EndPlusDays != nil {
			rule.EndPlusDays = *raw.EndPlusDays
		}
	} else {
		rule.EndPlusDays = 1
		if raw.EndPlusDays != nil {
			rule.EndPlusDays = *raw.EndPlusDays
		}
	}
	if rule.EndPlusDays < 0 {
		return schedule.Rule{}, fmt.Errorf("end_plus_days must not be negative")
	}

	constraints := []struct {
		name  string
		value any
		dest  **schedule.RangeSet
	}{
		{"years", raw.Years, &rule.Years},
		{"months", raw.Months, &rule.Months},
		{"days", raw.Days, &rule.Days},
		{"weeks", raw.Weeks, &rule.Weeks},
		{"weekdays", raw.Weekdays, &rule.Weekdays},
	}
	for _, c := range constraints {
		if c.value == nil {
			continue
		}
		rs, err := schedule.RangeSetFromValue(c.value)
		if err != nil {
			return schedule.Rule{}, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dest = rs
	}

	return rule, nil
}

// ─── Overlay helpers (room value > defaults section > built-in) ──────────────

func overlayFloat(value, fallback *float64, builtin float64) float64 {
	if value != nil {
		return *value
	}
	if fallback != nil {
		return *fallback
	}
	return builtin
}

func overlayFloatPtr(value, fallback *float64) *float64 {
	if value != nil {
		v := *value
		return &v
	}
	if fallback != nil {
		v := *fallback
		return &v
	}
	return nil
}

func overlayInt(value, fallback *int, builtin int) int {
	if value != nil {
		return *value
	}
	if fallback != nil {
		return *fallback
	}
	return builtin
}

func overlayBool(value, fallback *bool, builtin bool) bool {
	if value != nil {
		return *value
	}
	if fallback != nil {
		return *fallback
	}
	return builtin
}

func overlayString(value, fallback *string, builtin string) string {
	if value != nil {
		return *value
	}
	if fallback != nil {
		return *fallback
	}
	return builtin
}
