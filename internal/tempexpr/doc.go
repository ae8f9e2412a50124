// Package tempexpr compiles and evaluates temperature expressions.
//
// Schedule rules and external set-temperature events may carry either a
// plain value (21.5, "off") or an expression evaluated against the
// current clock and platform entity state:
//
//	time >= 6.5 && time < 22 ? 21.0 : 17.0
//	state("sensor.presence") == "home" ? 22 : ignore()
//
// Evaluation yields one of four result variants:
//
//   - Numeric: a concrete setpoint
//   - Off: switch the thermostat off
//   - Ignore: this rule abstains, try the next one
//   - NoChange: stop resolving, keep whatever is currently active
//
// The three falsy-like variants are deliberately distinct: Ignore moves
// rule matching forward, NoChange halts it, Off is an actuatable target.
//
// Expressions from static configuration compile at startup (a syntax
// error is fatal). Expressions arriving via events are gated by the
// untrusted-expressions flag and fail closed when it is disabled;
// plain literal values in events are always accepted.
package tempexpr
