package dispatch

import (
	"sync"
	"time"

	"github.com/emberhaus/ember-core/internal/infrastructure/config"
	"github.com/emberhaus/ember-core/internal/platform"
)

// External control events, ingested from the platform event bus. The
// names are part of the external contract.
const (
	EventSetTemp    = "heaty_set_temp"
	EventReschedule = "heaty_reschedule"
)

// RoomService is the room-control surface the dispatcher drives.
// Satisfied by *heating.Manager.
type RoomService interface {
	RescheduleAll(hard, force bool)
	RescheduleRoom(name string) error
	SetRoomTemp(room string, temp any, delayMinutes *int, force bool) error
}

// EventSource delivers platform events. Satisfied by *platform.Store.
type EventSource interface {
	SubscribeEvents(handler platform.EventHandler) error
}

// Logger is the minimal logging surface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Dispatcher feeds the room controllers from the outside world: a
// periodic soft-reschedule tick so every rule transition is observed
// within bounded latency, debounced reschedule-entity changes, and the
// two external control events.
type Dispatcher struct {
	rooms  RoomService
	events EventSource
	logger Logger

	// tickInterval and the debounce delay come from the scheduler
	// config; tests shrink them after construction.
	tickInterval   time.Duration
	entityDebounce *Debouncer

	done chan struct{}
	stop sync.Once
	wg   sync.WaitGroup
}

// New creates a dispatcher.
//
// Parameters:
//   - rooms: the room-control surface
//   - events: the platform event source
//   - cfg: tick interval and reschedule-entity settle delay
//   - logger: may be nil
func New(rooms RoomService, events EventSource, cfg config.SchedulerConfig, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	d := &Dispatcher{
		rooms:  rooms,
		events: events,
		logger: logger,
		done:   make(chan struct{}),
	}
	d.tickInterval = cfg.GetTickInterval()
	d.entityDebounce = NewDebouncer(
		cfg.GetRescheduleEntityDelay(),
		func() {
			d.logger.Info("reschedule entities settled, rescheduling all rooms")
			d.rooms.RescheduleAll(true, false)
		},
	)
	return d
}

// Start subscribes to control events and launches the tick loop.
func (d *Dispatcher) Start() error {
	if err := d.events.SubscribeEvents(d.handleEvent); err != nil {
		return err
	}
	d.wg.Add(1)
	go d.tickLoop()
	d.logger.Info("dispatcher started", "tick_interval", d.tickInterval)
	return nil
}

// Stop halts the tick loop and drops any pending debounced reschedule.
func (d *Dispatcher) Stop() {
	d.stop.Do(func() { close(d.done) })
	d.entityDebounce.Stop()
	d.wg.Wait()
}

// RescheduleEntityChanged feeds a state change of a configured
// reschedule entity. Bursts settle into one reschedule of all rooms.
func (d *Dispatcher) RescheduleEntityChanged(entityID string) {
	d.logger.Debug("reschedule entity changed", "entity", entityID)
	d.entityDebounce.Trigger()
}

func (d *Dispatcher) tickLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.rooms.RescheduleAll(false, false)
		}
	}
}

func (d *Dispatcher) handleEvent(ev platform.Event) {
	switch ev.Type {
	case EventSetTemp:
		d.handleSetTemp(ev)
	case EventReschedule:
		name, _ := ev.Data["room_name"].(string)
		if err := d.rooms.RescheduleRoom(name); err != nil {
			d.logger.Warn("reschedule event rejected", "room", name, "error", err)
		}
	default:
		d.logger.Debug("ignoring event", "type", ev.Type)
	}
}

func (d *Dispatcher) handleSetTemp(ev platform.Event) {
	room, ok := ev.Data["room_name"].(string)
	if !ok || room == "" {
		d.logger.Warn("set_temp event without room_name", "data", ev.Data)
		return
	}
	temp, ok := ev.Data["temp"]
	if !ok || temp == nil {
		d.logger.Warn("set_temp event without temp", "room", room)
		return
	}
	force, _ := ev.Data["force_resend"].(bool)

	var delayMinutes *int
	if raw, ok := ev.Data["reschedule_delay"]; ok && raw != nil {
		minutes, ok := intValue(raw)
		if !ok || minutes < 0 {
			d.logger.Warn("set_temp event with invalid reschedule_delay",
				"room", room, "reschedule_delay", raw)
			return
		}
		delayMinutes = &minutes
	}

	if err := d.rooms.SetRoomTemp(room, temp, delayMinutes, force); err != nil {
		d.logger.Warn("set_temp event rejected", "room", room, "error", err)
	}
}

// intValue accepts the integer shapes JSON and YAML decoding produce.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
