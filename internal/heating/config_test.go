package heating

import (
	"errors"
	"testing"
	"time"

	"github.com/emberhaus/ember-core/internal/tempexpr"
)

const sampleConfig = `
master_switch: switch.heating_master
off_temp: "off"
reschedule_delay: 45
reschedule_entities:
  input_boolean.vacation: {}
expression_modules:
  temps:
    comfort: 21.5
thermostat_defaults:
  set_temp_retries: 2
  min_temp: 6.0
window_sensor_defaults:
  delay: 5
rooms:
  living:
    friendly_name: Living Room
    thermostats:
      climate.living:
        delta: -0.5
      climate.living_aux:
        set_temp_retries: 8
        min_temp: 8.0
    window_sensors:
      binary_sensor.window_living: {}
      binary_sensor.door_terrace:
        delay: 20
        inverted: true
    schedule:
      - { temp: "temps.comfort", start: "07:00", end: "22:00", weekdays: "1-5" }
      - { temp: 16 }
  bedroom:
    replicate_changes: false
    reschedule_delay: 0
    thermostats:
      climate.bedroom: {}
    schedule:
      - { temp: 18, start: "06:30", end: "08:00" }
`

func parseTestConfig(t *testing.T, data string) (*Config, *tempexpr.Evaluator) {
	t.Helper()
	cfg, evaluator, err := parseConfig([]byte(data), nil, nil)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	return cfg, evaluator
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestParseConfig_Globals(t *testing.T) {
	cfg, _ := parseTestConfig(t, sampleConfig)

	if cfg.MasterSwitch != "switch.heating_master" {
		t.Errorf("MasterSwitch = %q", cfg.MasterSwitch)
	}
	if cfg.OffTemp.Kind != tempexpr.KindOff {
		t.Errorf("OffTemp.Kind = %v, want off", cfg.OffTemp.Kind)
	}
	if len(cfg.RescheduleEntities) != 1 || cfg.RescheduleEntities[0] != "input_boolean.vacation" {
		t.Errorf("RescheduleEntities = %v", cfg.RescheduleEntities)
	}
	if cfg.ExpressionModules["temps"]["comfort"] != 21.5 {
		t.Errorf("ExpressionModules = %v", cfg.ExpressionModules)
	}

	// Rooms come back name-sorted.
	if len(cfg.Rooms) != 2 || cfg.Rooms[0].Name != "bedroom" || cfg.Rooms[1].Name != "living" {
		t.Fatalf("rooms = %v", cfg.Rooms)
	}
}

func TestParseConfig_RoomSettings(t *testing.T) {
	cfg, _ := parseTestConfig(t, sampleConfig)

	living := cfg.Room("living")
	if living.FriendlyName != "Living Room" {
		t.Errorf("FriendlyName = %q", living.FriendlyName)
	}
	if !living.ReplicateChanges {
		t.Error("living should inherit global replicate_changes default")
	}
	if living.RescheduleDelay != 45 {
		t.Errorf("RescheduleDelay = %d, want global 45", living.RescheduleDelay)
	}

	bedroom := cfg.Room("bedroom")
	if bedroom.FriendlyName != "bedroom" {
		t.Errorf("FriendlyName = %q, want room name fallback", bedroom.FriendlyName)
	}
	if bedroom.ReplicateChanges {
		t.Error("bedroom overrides replicate_changes to false")
	}
	if bedroom.RescheduleDelay != 0 {
		t.Errorf("RescheduleDelay = %d, want explicit 0", bedroom.RescheduleDelay)
	}
}

func TestParseConfig_ThermostatOverlay(t *testing.T) {
	cfg, _ := parseTestConfig(t, sampleConfig)
	living := cfg.Room("living")

	main := living.Thermostat("climate.living")
	if main == nil {
		t.Fatal("climate.living missing")
	}
	if main.Delta != -0.5 {
		t.Errorf("Delta = %v", main.Delta)
	}
	if main.SetTempRetries != 2 {
		t.Errorf("SetTempRetries = %d, want defaults-section 2", main.SetTempRetries)
	}
	if main.SetTempRetryInterval != 10 {
		t.Errorf("SetTempRetryInterval = %d, want built-in 10", main.SetTempRetryInterval)
	}
	if main.MinTemp == nil || *main.MinTemp != 6.0 {
		t.Errorf("MinTemp = %v, want defaults-section 6.0", main.MinTemp)
	}
	if main.OpmodeService != "climate/set_operation_mode" || main.TempServiceAttr != "temperature" {
		t.Errorf("vocabulary defaults not applied: %+v", main)
	}

	aux := living.Thermostat("climate.living_aux")
	if aux.SetTempRetries != 8 {
		t.Errorf("aux SetTempRetries = %d, want per-thermostat 8", aux.SetTempRetries)
	}
	if aux.MinTemp == nil || *aux.MinTemp != 8.0 {
		t.Errorf("aux MinTemp = %v", aux.MinTemp)
	}
}

func TestParseConfig_WindowSensorOverlay(t *testing.T) {
	cfg, _ := parseTestConfig(t, sampleConfig)
	living := cfg.Room("living")

	window := living.WindowSensor("binary_sensor.window_living")
	if window == nil || window.Delay != 5 || window.Inverted {
		t.Errorf("window sensor = %+v, want defaults-section delay 5", window)
	}
	door := living.WindowSensor("binary_sensor.door_terrace")
	if door == nil || door.Delay != 20 || !door.Inverted {
		t.Errorf("door sensor = %+v", door)
	}
}

func TestParseConfig_ScheduleRules(t *testing.T) {
	cfg, evaluator := parseTestConfig(t, sampleConfig)
	living := cfg.Room("living")

	if len(living.Schedule) != 2 {
		t.Fatalf("schedule length = %d", len(living.Schedule))
	}

	weekday := living.Schedule[0]
	if weekday.Start.String() != "7h0m0s" || weekday.End.String() != "22h0m0s" {
		t.Errorf("window = [%v, %v]", weekday.Start, weekday.End)
	}
	if weekday.EndPlusDays != 0 {
		t.Errorf("EndPlusDays = %d, want 0 for explicit end", weekday.EndPlusDays)
	}
	if weekday.Weekdays == nil || !weekday.Weekdays.Contains(3) || weekday.Weekdays.Contains(6) {
		t.Errorf("weekdays constraint = %v", weekday.Weekdays)
	}

	// The expression resolves through the config's modules.
	result, err := evaluator.Evaluate(weekday.Temp, time.Now())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.Kind != tempexpr.KindNumeric || result.Value != 21.5 {
		t.Errorf("temps.comfort = %v", result)
	}

	// A rule with neither start nor end covers the whole day.
	fallback := living.Schedule[1]
	if fallback.Start != 0 || fallback.End != 0 || fallback.EndPlusDays != 1 {
		t.Errorf("fallback rule = start %v end %v offset %d, want full day",
			fallback.Start, fallback.End, fallback.EndPlusDays)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no rooms",
			yaml: `off_temp: "off"`,
		},
		{
			name: "room without thermostats",
			yaml: `
rooms:
  empty:
    schedule: [{ temp: 20 }]
`,
		},
		{
			name: "rule without temp",
			yaml: `
rooms:
  living:
    thermostats: { climate.living: {} }
    schedule: [{ start: "07:00" }]
`,
		},
		{
			name: "expression syntax error",
			yaml: `
rooms:
  living:
    thermostats: { climate.living: {} }
    schedule: [{ temp: "21.5 +" }]
`,
		},
		{
			name: "bad start time",
			yaml: `
rooms:
  living:
    thermostats: { climate.living: {} }
    schedule: [{ temp: 20, start: "25:00" }]
`,
		},
		{
			name: "bad weekday range",
			yaml: `
rooms:
  living:
    thermostats: { climate.living: {} }
    schedule: [{ temp: 20, weekdays: "5-1" }]
`,
		},
		{
			name: "negative end_plus_days",
			yaml: `
rooms:
  living:
    thermostats: { climate.living: {} }
    schedule: [{ temp: 20, end: "07:00", end_plus_days: -1 }]
`,
		},
		{
			name: "negative reschedule_delay",
			yaml: `
rooms:
  living:
    reschedule_delay: -5
    thermostats: { climate.living: {} }
`,
		},
		{
			name: "off_temp not a temperature",
			yaml: `
off_temp: maybe
rooms:
  living:
    thermostats: { climate.living: {} }
`,
		},
		{
			name: "zero retry interval",
			yaml: `
rooms:
  living:
    thermostats:
      climate.living: { set_temp_retry_interval: 0 }
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseConfig([]byte(tt.yaml), nil, nil)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("parseConfig() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseConfig_InfiniteRetries(t *testing.T) {
	cfg, _ := parseTestConfig(t, `
rooms:
  living:
    thermostats:
      climate.living: { set_temp_retries: -1 }
`)
	therm := cfg.Room("living").Thermostat("climate.living")
	if therm.SetTempRetries != -1 {
		t.Errorf("SetTempRetries = %d, want -1", therm.SetTempRetries)
	}
	if therm.RetryBudget(time.Second) != 0 {
		t.Error("infinite retries should have no budget")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, _, err := LoadConfig("/nonexistent/heating.yaml", nil, nil)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("LoadConfig() error = %v, want ErrConfig", err)
	}
}
