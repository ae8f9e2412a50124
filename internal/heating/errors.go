package heating

import "errors"

// Domain-specific errors for the heating scheduler.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfig is returned for schema violations and expression
	// compile failures in the heating config. Fatal at startup.
	ErrConfig = errors.New("heating: invalid configuration")

	// ErrUnknownRoom is returned when an event addresses a room that
	// does not exist in the configuration.
	ErrUnknownRoom = errors.New("heating: unknown room")

	// ErrCommandFailed is reported when a thermostat command's
	// read-back never matched within the retry budget. Recovered
	// locally; sibling thermostats and other rooms are unaffected.
	ErrCommandFailed = errors.New("heating: thermostat command failed")
)
