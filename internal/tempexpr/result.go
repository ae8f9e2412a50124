package tempexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Result holds.
type Kind int

const (
	// KindNumeric is a concrete temperature setpoint in degrees.
	KindNumeric Kind = iota

	// KindOff means the thermostat should be switched off entirely.
	KindOff

	// KindIgnore means the producing rule abstains; the matcher moves on
	// to the next rule in the list.
	KindIgnore

	// KindNoChange means resolution stops and the currently active
	// temperature is left untouched.
	KindNoChange
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindOff:
		return "off"
	case KindIgnore:
		return "ignore"
	case KindNoChange:
		return "no_change"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the typed outcome of evaluating a temperature expression.
// Value is only meaningful when Kind is KindNumeric.
type Result struct {
	Kind  Kind
	Value float64
}

// Numeric returns a concrete temperature result.
func Numeric(value float64) Result {
	return Result{Kind: KindNumeric, Value: value}
}

// Off returns the switch-off result.
func Off() Result {
	return Result{Kind: KindOff}
}

// Ignore returns the skip-this-rule result.
func Ignore() Result {
	return Result{Kind: KindIgnore}
}

// NoChange returns the keep-current-temperature result.
func NoChange() Result {
	return Result{Kind: KindNoChange}
}

// String formats the result for logs and journal rows.
func (r Result) String() string {
	switch r.Kind {
	case KindNumeric:
		return strconv.FormatFloat(r.Value, 'g', -1, 64)
	default:
		return r.Kind.String()
	}
}

// IsTarget reports whether the result is an actuatable target
// (a numeric setpoint or an explicit off).
func (r Result) IsTarget() bool {
	return r.Kind == KindNumeric || r.Kind == KindOff
}

// sentinel is the runtime representation of the ignore/no-change markers
// exposed to expressions through the evaluation environment.
type sentinel int

const (
	sentinelIgnore sentinel = iota
	sentinelNoChange
)

// offLiteral is the string form recognised as the switch-off sentinel.
const offLiteral = "off"

// ParseLiteral interprets a plain (non-expression) temperature value:
// a number, a numeric string, or the literal "off" (case-insensitive).
//
// Returns:
//   - Result: the parsed value
//   - bool: false if the input is not a recognised literal
func ParseLiteral(value any) (Result, bool) {
	switch v := value.(type) {
	case float64:
		return Numeric(v), true
	case float32:
		return Numeric(float64(v)), true
	case int:
		return Numeric(float64(v)), true
	case int64:
		return Numeric(float64(v)), true
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, offLiteral) {
			return Off(), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Numeric(f), true
		}
		return Result{}, false
	default:
		return Result{}, false
	}
}

// fromRuntimeValue converts the raw value produced by an expression into
// a typed Result. Unrecognised types are reported as evaluation errors.
func fromRuntimeValue(value any) (Result, error) {
	if value == nil {
		return NoChange(), nil
	}

	if s, ok := value.(sentinel); ok {
		switch s {
		case sentinelIgnore:
			return Ignore(), nil
		case sentinelNoChange:
			return NoChange(), nil
		}
	}

	if r, ok := ParseLiteral(value); ok {
		return r, nil
	}

	return Result{}, fmt.Errorf("%w: unrecognised result type %T (%v)", ErrEvaluation, value, value)
}
