package heating

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emberhaus/ember-core/internal/tempexpr"
)

const managerConfig = `
master_switch: switch.heating_master
reschedule_entities:
  input_boolean.vacation: {}
rooms:
  bedroom:
    thermostats:
      climate.bedroom: {}
    schedule:
      - { temp: 18 }
  living:
    thermostats:
      climate.living: {}
    window_sensors:
      binary_sensor.window: { delay: 0 }
    schedule:
      - { temp: 21.5 }
`

func newTestManager(t *testing.T, configYAML string) (*Manager, *fakePlatform) {
	t.Helper()

	platform := newFakePlatform(true)
	cfg, evaluator, err := parseConfig([]byte(configYAML), platform, nil)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	mgr := NewManager(cfg, evaluator, platform, platform, nil, nil, nil)
	return mgr, platform
}

func roomSnapshot(t *testing.T, mgr *Manager, room string) Snapshot {
	t.Helper()
	for _, snap := range mgr.Snapshots() {
		if snap.Room == room {
			return snap
		}
	}
	t.Fatalf("no snapshot for room %q", room)
	return Snapshot{}
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestManager_StartSchedulesAllRooms(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	mgr.Start()
	defer mgr.Stop()

	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	snaps := mgr.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("snapshot count = %d", len(snaps))
	}
	if snaps[0].Room != "bedroom" || snaps[1].Room != "living" {
		t.Errorf("rooms = %q, %q", snaps[0].Room, snaps[1].Room)
	}
	if snaps[0].Target != "18" || snaps[1].Target != "21.5" {
		t.Errorf("targets = %q, %q", snaps[0].Target, snaps[1].Target)
	}
}

func TestManager_StartWithMasterOff(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	platform.setState("switch.heating_master", "off")
	mgr.Start()
	defer mgr.Stop()

	// Both rooms get the off temperature instead of their schedules.
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 2 })
	for i := 0; i < 2; i++ {
		if call := platform.call(i); call.data["operation_mode"] != "off" {
			t.Errorf("call %d = %+v, want off", i, call)
		}
	}
}

func TestManager_RoutesMasterSwitch(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	mgr.Start()
	defer mgr.Stop()
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	mgr.EntityChanged("switch.heating_master", "off")
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 6 })

	for _, room := range []string{"bedroom", "living"} {
		if snap := roomSnapshot(t, mgr, room); snap.Mode != ModeScheduled {
			t.Errorf("%s mode = %v", room, snap.Mode)
		}
	}

	mgr.EntityChanged("switch.heating_master", "on")
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 10 })
	if snap := roomSnapshot(t, mgr, "living"); snap.Target != "21.5" {
		t.Errorf("living target = %q after master on", snap.Target)
	}
}

func TestManager_RoutesWindowSensor(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	mgr.Start()
	defer mgr.Stop()
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	mgr.EntityChanged("binary_sensor.window", "on")
	waitFor(t, time.Second, func() bool {
		return roomSnapshot(t, mgr, "living").Mode == ModeWindowOpen
	})

	// The other room is unaffected.
	if snap := roomSnapshot(t, mgr, "bedroom"); snap.Mode != ModeScheduled {
		t.Errorf("bedroom mode = %v", snap.Mode)
	}
}

func TestManager_RoutesThermostatReport(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	mgr.Start()
	defer mgr.Stop()
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	platform.setAttr("climate.living", "operation_mode", "heat")
	platform.setAttr("climate.living", "temperature", 23.0)
	mgr.EntityChanged("climate.living", "heat")

	waitFor(t, time.Second, func() bool {
		snap := roomSnapshot(t, mgr, "living")
		return snap.Mode == ModeOverridden && snap.Target == "23"
	})
}

func TestManager_RescheduleEntityHook(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)

	var fired atomic.Int32
	mgr.OnRescheduleEntity(func(entityID string) {
		if entityID != "input_boolean.vacation" {
			t.Errorf("hook entity = %q", entityID)
		}
		fired.Add(1)
	})
	mgr.Start()
	defer mgr.Stop()
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	mgr.EntityChanged("input_boolean.vacation", "on")
	if fired.Load() != 1 {
		t.Errorf("hook fired %d times", fired.Load())
	}

	mgr.EntityChanged("input_boolean.holiday", "on")
	if fired.Load() != 1 {
		t.Error("unconfigured entity fired the hook")
	}
}

func TestManager_SetRoomTemp(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	mgr.Start()
	defer mgr.Stop()
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	if err := mgr.SetRoomTemp("hallway", 22, nil, false); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("unknown room error = %v", err)
	}

	// Expressions are rejected unless untrusted_expressions is on.
	if err := mgr.SetRoomTemp("living", "21 + 2", nil, false); !errors.Is(err, tempexpr.ErrUntrusted) {
		t.Errorf("expression error = %v", err)
	}

	if err := mgr.SetRoomTemp("living", 25, nil, false); err != nil {
		t.Fatalf("SetRoomTemp() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		snap := roomSnapshot(t, mgr, "living")
		return snap.Mode == ModeOverridden && snap.Target == "25"
	})
}

func TestManager_RescheduleRoom(t *testing.T) {
	mgr, platform := newTestManager(t, managerConfig)
	mgr.Start()
	defer mgr.Stop()
	waitFor(t, time.Second, func() bool { return platform.callCount() >= 4 })

	if err := mgr.RescheduleRoom("hallway"); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("unknown room error = %v", err)
	}
	if err := mgr.RescheduleRoom("living"); err != nil {
		t.Errorf("RescheduleRoom() error = %v", err)
	}
	if err := mgr.RescheduleRoom(""); err != nil {
		t.Errorf("RescheduleRoom(all) error = %v", err)
	}
}
