package tempexpr

import "errors"

// Domain-specific errors for expression handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrCompile is returned when an expression fails to parse or compile.
	// Surfaced at config load time, never during scheduling.
	ErrCompile = errors.New("tempexpr: expression compile failed")

	// ErrEvaluation is returned when a compiled expression raises at runtime
	// or produces a value that cannot be mapped to a temperature result.
	// Callers recover locally and treat the rule as NoChange.
	ErrEvaluation = errors.New("tempexpr: expression evaluation failed")

	// ErrUntrusted is returned when an expression arrives from an external
	// event and the untrusted-expressions flag is disabled. The expression
	// fails closed without ever being compiled.
	ErrUntrusted = errors.New("tempexpr: untrusted expression rejected")
)
