package heating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// Outcome values recorded for every issued command.
const (
	OutcomeVerified   = "verified"
	OutcomeExhausted  = "exhausted"
	OutcomeSuperseded = "superseded"
	OutcomeCancelled  = "cancelled"
)

// errSuperseded marks a command cancelled because a newer target for
// the same thermostat replaced it. Passed as the cancellation cause so
// the actuator can tell supersede from shutdown.
var errSuperseded = errors.New("superseded by newer command")

// tempEpsilon tolerates float round-trips through JSON when comparing
// a reported setpoint against the commanded one.
const tempEpsilon = 1e-3

// ServiceCaller issues platform service calls.
type ServiceCaller interface {
	CallService(domain, service string, data map[string]any) (string, error)
}

// StateGetter reads current entity state for verification.
type StateGetter interface {
	EntityState(entityID string) string
	EntityAttribute(entityID, attribute string) any
}

// Recorder persists the final outcome of a command. Implementations
// must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, entry JournalEntry) error
}

// JournalEntry is one resolved command.
type JournalEntry struct {
	ID         string
	Room       string
	EntityID   string
	Target     string
	Source     string
	Attempts   int
	Outcome    string
	IssuedAt   time.Time
	ResolvedAt time.Time
}

// Command is a device-level setpoint for a single thermostat. Target
// already carries the thermostat's delta and min-temp clamping.
type Command struct {
	ID         string
	Room       string
	Thermostat Thermostat
	Target     tempexpr.Result
	Source     string
}

// Actuator drives thermostats to commanded setpoints and verifies the
// device accepted them, resending on a fixed interval until verified
// or the retry budget runs out.
type Actuator struct {
	services ServiceCaller
	states   StateGetter
	recorder Recorder
	logger   Logger

	// timeUnit scales retry intervals; one second in production.
	timeUnit time.Duration
}

// NewActuator creates an actuator. recorder and logger may be nil.
func NewActuator(services ServiceCaller, states StateGetter, recorder Recorder, logger Logger) *Actuator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Actuator{
		services: services,
		states:   states,
		recorder: recorder,
		logger:   logger,
		timeUnit: time.Second,
	}
}

// Apply sends the command and retries until the thermostat reports the
// commanded operation mode and setpoint.
//
// With N retries configured the command is sent up to N+1 times, with
// the retry interval slept between consecutive attempts. A retry count
// of -1 retries forever; such a command only ends verified, superseded
// or cancelled.
//
// Cancelling ctx with errSuperseded as the cause resolves the command
// as superseded; any other cancellation resolves it as cancelled. The
// outcome is journalled either way.
//
// Returns:
//   - string: the outcome constant
//   - error: wrapped ErrCommandFailed on exhaustion or send failure
func (a *Actuator) Apply(ctx context.Context, cmd Command) (string, error) {
	issued := time.Now()
	therm := cmd.Thermostat
	attempts := 0

	for {
		attempts++
		if err := a.send(cmd); err != nil {
			a.logger.Warn("thermostat command send failed",
				"room", cmd.Room, "entity", therm.EntityID,
				"attempt", attempts, "error", err)
		} else if a.verified(cmd) {
			a.resolve(ctx, cmd, attempts, OutcomeVerified, issued)
			return OutcomeVerified, nil
		}

		if therm.SetTempRetries >= 0 && attempts > therm.SetTempRetries {
			a.resolve(ctx, cmd, attempts, OutcomeExhausted, issued)
			return OutcomeExhausted, fmt.Errorf("%w: %s did not accept %s after %d attempts",
				ErrCommandFailed, therm.EntityID, cmd.Target, attempts)
		}

		interval := time.Duration(therm.SetTempRetryInterval) * a.timeUnit
		if err := sleepCtx(ctx, interval); err != nil {
			outcome := OutcomeCancelled
			if errors.Is(context.Cause(ctx), errSuperseded) {
				outcome = OutcomeSuperseded
			}
			a.resolve(context.WithoutCancel(ctx), cmd, attempts, outcome, issued)
			return outcome, nil
		}
	}
}

// send issues the operation-mode call and, when heating, the setpoint
// call. Off targets get the off opmode and no setpoint.
func (a *Actuator) send(cmd Command) error {
	therm := cmd.Thermostat

	opmode := therm.OpmodeHeat
	if cmd.Target.Kind == tempexpr.KindOff {
		opmode = therm.OpmodeOff
	}

	domain, service, err := splitService(therm.OpmodeService)
	if err != nil {
		return err
	}
	if _, err := a.services.CallService(domain, service, map[string]any{
		"entity_id":             therm.EntityID,
		therm.OpmodeServiceAttr: opmode,
	}); err != nil {
		return err
	}

	if cmd.Target.Kind != tempexpr.KindNumeric {
		return nil
	}

	domain, service, err = splitService(therm.TempService)
	if err != nil {
		return err
	}
	_, err = a.services.CallService(domain, service, map[string]any{
		"entity_id":           therm.EntityID,
		therm.TempServiceAttr: cmd.Target.Value,
	})
	return err
}

// verified reports whether the thermostat's state matches the command.
func (a *Actuator) verified(cmd Command) bool {
	therm := cmd.Thermostat

	opmode, _ := a.states.EntityAttribute(therm.EntityID, therm.OpmodeStateAttr).(string)
	if cmd.Target.Kind == tempexpr.KindOff {
		return opmode == therm.OpmodeOff
	}
	if opmode != therm.OpmodeHeat {
		return false
	}

	reported, ok := floatValue(a.states.EntityAttribute(therm.EntityID, therm.TempStateAttr))
	return ok && math.Abs(reported-cmd.Target.Value) < tempEpsilon
}

func (a *Actuator) resolve(ctx context.Context, cmd Command, attempts int, outcome string, issued time.Time) {
	a.logger.Debug("thermostat command resolved",
		"room", cmd.Room, "entity", cmd.Thermostat.EntityID,
		"target", cmd.Target.String(), "outcome", outcome, "attempts", attempts)

	if a.recorder == nil {
		return
	}
	entry := JournalEntry{
		ID:         cmd.ID,
		Room:       cmd.Room,
		EntityID:   cmd.Thermostat.EntityID,
		Target:     cmd.Target.String(),
		Source:     cmd.Source,
		Attempts:   attempts,
		Outcome:    outcome,
		IssuedAt:   issued,
		ResolvedAt: time.Now(),
	}
	if err := a.recorder.Record(ctx, entry); err != nil {
		a.logger.Warn("journal write failed", "command", cmd.ID, "error", err)
	}
}

// splitService parses "domain/service" notation.
func splitService(spec string) (domain, service string, err error) {
	domain, service, ok := strings.Cut(spec, "/")
	if !ok || domain == "" || service == "" {
		return "", "", fmt.Errorf("%w: malformed service %q", ErrConfig, spec)
	}
	return domain, service, nil
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
