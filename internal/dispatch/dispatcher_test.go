package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/emberhaus/ember-core/internal/infrastructure/config"
	"github.com/emberhaus/ember-core/internal/platform"
)

type rescheduleAllCall struct {
	hard  bool
	force bool
}

type setTempCall struct {
	room  string
	temp  any
	delay *int
	force bool
}

type fakeRooms struct {
	mu             sync.Mutex
	rescheduleAll  []rescheduleAllCall
	rescheduleRoom []string
	setTemp        []setTempCall
	err            error
}

func (f *fakeRooms) RescheduleAll(hard, force bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduleAll = append(f.rescheduleAll, rescheduleAllCall{hard: hard, force: force})
}

func (f *fakeRooms) RescheduleRoom(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduleRoom = append(f.rescheduleRoom, name)
	return f.err
}

func (f *fakeRooms) SetRoomTemp(room string, temp any, delay *int, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTemp = append(f.setTemp, setTempCall{room: room, temp: temp, delay: delay, force: force})
	return f.err
}

func (f *fakeRooms) rescheduleAllCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rescheduleAll)
}

type fakeEvents struct {
	handler platform.EventHandler
}

func (f *fakeEvents) SubscribeEvents(handler platform.EventHandler) error {
	f.handler = handler
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeRooms, *fakeEvents) {
	t.Helper()
	rooms := &fakeRooms{}
	events := &fakeEvents{}
	d := New(rooms, events, config.SchedulerConfig{
		TickInterval:          5,
		RescheduleEntityDelay: 10,
	}, nil)
	// Rescale seconds to milliseconds for the test.
	d.tickInterval = 5 * time.Millisecond
	d.entityDebounce = NewDebouncer(10*time.Millisecond, d.entityDebounce.fn)

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(d.Stop)
	return d, rooms, events
}

func TestNew_UsesConfiguredDurations(t *testing.T) {
	d := New(&fakeRooms{}, &fakeEvents{}, config.SchedulerConfig{
		TickInterval:          60,
		RescheduleEntityDelay: 5,
	}, nil)

	if d.tickInterval != 60*time.Second {
		t.Errorf("tickInterval = %v, want 60s", d.tickInterval)
	}
	if d.entityDebounce.delay != 5*time.Second {
		t.Errorf("debounce delay = %v, want 5s", d.entityDebounce.delay)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestDebouncer_CollapsesBurst(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	d := NewDebouncer(20*time.Millisecond, func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired == 1
	})
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Errorf("fired %d times, want burst collapsed to 1", fired)
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(10*time.Millisecond, func() { fired <- struct{}{} })

	d.Trigger()
	d.Stop()
	d.Trigger() // ignored after Stop

	select {
	case <-fired:
		t.Error("stopped debouncer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_PeriodicSoftTick(t *testing.T) {
	_, rooms, _ := newTestDispatcher(t)

	waitFor(t, time.Second, func() bool { return rooms.rescheduleAllCount() >= 2 })

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	for _, call := range rooms.rescheduleAll {
		if call.hard || call.force {
			t.Fatalf("tick issued %+v, want soft reschedule", call)
		}
	}
}

func TestDispatcher_SetTempEvent(t *testing.T) {
	_, rooms, events := newTestDispatcher(t)

	events.handler(platform.Event{
		Type: EventSetTemp,
		Data: map[string]any{
			"room_name":        "living",
			"temp":             25.0,
			"force_resend":     true,
			"reschedule_delay": 60.0,
		},
	})

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	if len(rooms.setTemp) != 1 {
		t.Fatalf("setTemp calls = %d", len(rooms.setTemp))
	}
	call := rooms.setTemp[0]
	if call.room != "living" || call.temp != 25.0 || !call.force {
		t.Errorf("call = %+v", call)
	}
	if call.delay == nil || *call.delay != 60 {
		t.Errorf("delay = %v, want 60", call.delay)
	}
}

func TestDispatcher_SetTempValidation(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"missing room_name", map[string]any{"temp": 25.0}},
		{"missing temp", map[string]any{"room_name": "living"}},
		{"negative reschedule_delay", map[string]any{
			"room_name": "living", "temp": 25.0, "reschedule_delay": -5.0,
		}},
		{"non-numeric reschedule_delay", map[string]any{
			"room_name": "living", "temp": 25.0, "reschedule_delay": "soon",
		}},
		{"fractional reschedule_delay", map[string]any{
			"room_name": "living", "temp": 25.0, "reschedule_delay": 2.5,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rooms, events := newTestDispatcher(t)
			events.handler(platform.Event{Type: EventSetTemp, Data: tt.data})

			rooms.mu.Lock()
			defer rooms.mu.Unlock()
			if len(rooms.setTemp) != 0 {
				t.Errorf("malformed event reached the room service: %+v", rooms.setTemp)
			}
		})
	}
}

func TestDispatcher_RescheduleEvent(t *testing.T) {
	_, rooms, events := newTestDispatcher(t)

	events.handler(platform.Event{
		Type: EventReschedule,
		Data: map[string]any{"room_name": "living"},
	})
	// Unaddressed: reschedules everything.
	events.handler(platform.Event{Type: EventReschedule, Data: map[string]any{}})

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	if len(rooms.rescheduleRoom) != 2 {
		t.Fatalf("reschedule calls = %d", len(rooms.rescheduleRoom))
	}
	if rooms.rescheduleRoom[0] != "living" || rooms.rescheduleRoom[1] != "" {
		t.Errorf("reschedule rooms = %v", rooms.rescheduleRoom)
	}
}

func TestDispatcher_RescheduleEntityDebounce(t *testing.T) {
	d, rooms, _ := newTestDispatcher(t)

	for i := 0; i < 5; i++ {
		d.RescheduleEntityChanged("input_boolean.vacation")
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool {
		rooms.mu.Lock()
		defer rooms.mu.Unlock()
		for _, call := range rooms.rescheduleAll {
			if call.hard {
				return true
			}
		}
		return false
	})

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	hard := 0
	for _, call := range rooms.rescheduleAll {
		if call.hard {
			hard++
		}
	}
	if hard != 1 {
		t.Errorf("hard reschedules = %d, want burst collapsed to 1", hard)
	}
}

func TestDispatcher_IgnoresUnknownEvents(t *testing.T) {
	_, rooms, events := newTestDispatcher(t)

	events.handler(platform.Event{Type: "sunrise", Data: map[string]any{}})

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	if len(rooms.setTemp) != 0 || len(rooms.rescheduleRoom) != 0 {
		t.Error("unknown event reached the room service")
	}
}
