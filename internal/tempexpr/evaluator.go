package tempexpr

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// StateReader provides read access to platform entity state for
// expressions that reference external inputs.
type StateReader interface {
	// EntityState returns the state string of an entity, or "" if unknown.
	EntityState(entityID string) string

	// EntityAttribute returns a named attribute of an entity, or nil.
	EntityAttribute(entityID, attribute string) any
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// Compiled is a temperature expression ready for repeated evaluation.
//
// Plain literals (numbers and "off") are detected at compile time and
// short-circuit evaluation entirely; only genuine expressions carry a
// compiled program.
type Compiled struct {
	source  string
	literal *Result
	program *vm.Program
}

// Source returns the original expression text.
func (c *Compiled) Source() string {
	return c.source
}

// IsLiteral reports whether the expression is a plain literal that
// never touches the expression engine.
func (c *Compiled) IsLiteral() bool {
	return c.literal != nil
}

// Evaluator compiles and evaluates temperature expressions against an
// environment exposing the clock, entity state, and helper modules.
//
// Thread Safety:
//   - Evaluate is safe for concurrent use; compiled programs are
//     re-entrant and the evaluator holds no mutable state.
type Evaluator struct {
	states StateReader
	logger Logger

	// modules are named constant maps merged into every evaluation
	// environment (configured via expression_modules).
	modules map[string]map[string]any

	// allowUntrusted permits expressions supplied by external events.
	// When false, CompileUntrusted rejects anything but plain literals.
	allowUntrusted bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for evaluation failures.
func WithLogger(logger Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithModules merges named helper modules into every evaluation environment.
func WithModules(modules map[string]map[string]any) Option {
	return func(e *Evaluator) {
		e.modules = modules
	}
}

// WithUntrustedAllowed permits execution of event-supplied expressions.
func WithUntrustedAllowed(allowed bool) Option {
	return func(e *Evaluator) {
		e.allowUntrusted = allowed
	}
}

// New creates an Evaluator. states may be nil if no expression
// references entity state.
func New(states StateReader, opts ...Option) *Evaluator {
	e := &Evaluator{
		states: states,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile parses a configuration-sourced temperature expression.
//
// Literal numbers and the string "off" bypass the expression engine.
// Anything else is compiled once; syntax errors surface here so that a
// broken config aborts startup instead of failing mid-schedule.
//
// Parameters:
//   - source: expression text, or a literal value from YAML
//
// Returns:
//   - *Compiled: expression ready for Evaluate
//   - error: wrapped ErrCompile on syntax errors
func (e *Evaluator) Compile(source any) (*Compiled, error) {
	if r, ok := ParseLiteral(source); ok {
		src := fmt.Sprintf("%v", source)
		return &Compiled{source: src, literal: &r}, nil
	}

	src, ok := source.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported expression type %T", ErrCompile, source)
	}

	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, src, err)
	}

	return &Compiled{source: src, program: program}, nil
}

// CompileUntrusted parses an expression supplied by an external event.
//
// Plain literals are always accepted. Genuine expressions are only
// compiled when the untrusted-expressions flag is enabled; otherwise
// they fail closed with ErrUntrusted.
func (e *Evaluator) CompileUntrusted(source any) (*Compiled, error) {
	if r, ok := ParseLiteral(source); ok {
		src := fmt.Sprintf("%v", source)
		return &Compiled{source: src, literal: &r}, nil
	}

	if !e.allowUntrusted {
		return nil, fmt.Errorf("%w: %v", ErrUntrusted, source)
	}

	return e.Compile(source)
}

// Evaluate runs a compiled expression against the environment at the
// given instant.
//
// Parameters:
//   - c: compiled expression
//   - now: evaluation instant (exposed to the expression)
//
// Returns:
//   - Result: typed temperature result
//   - error: wrapped ErrEvaluation on runtime failure; callers treat
//     the rule as NoChange
func (e *Evaluator) Evaluate(c *Compiled, now time.Time) (Result, error) {
	if c.literal != nil {
		return *c.literal, nil
	}

	raw, err := expr.Run(c.program, e.buildEnv(now))
	if err != nil {
		e.logger.Warn("temperature expression raised",
			"expression", c.source,
			"error", err,
		)
		return Result{}, fmt.Errorf("%w: %q: %w", ErrEvaluation, c.source, err)
	}

	result, err := fromRuntimeValue(raw)
	if err != nil {
		e.logger.Warn("temperature expression returned unusable value",
			"expression", c.source,
			"error", err,
		)
		return Result{}, err
	}

	return result, nil
}

// buildEnv assembles the evaluation environment for one instant.
//
// Exposed names:
//   - now: full timestamp
//   - date fields: year, month, day, weekday (Mon=1..Sun=7), week
//   - time fields: hour, minute, time (fractional hours, e.g. 14.5)
//   - state(entity_id): entity state string
//   - attr(entity_id, name): entity attribute value
//   - OFF, ignore(), no_change(): result sentinels
//   - configured helper modules, each under its module name
func (e *Evaluator) buildEnv(now time.Time) map[string]any {
	_, week := now.ISOWeek()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO numbering, Sunday is 7
	}

	env := map[string]any{
		"now":     now,
		"year":    now.Year(),
		"month":   int(now.Month()),
		"day":     now.Day(),
		"weekday": weekday,
		"week":    week,
		"hour":    now.Hour(),
		"minute":  now.Minute(),
		"time":    float64(now.Hour()) + float64(now.Minute())/60.0,

		"OFF":       offLiteral,
		"ignore":    func() any { return sentinelIgnore },
		"no_change": func() any { return sentinelNoChange },

		"state": func(entityID string) string {
			if e.states == nil {
				return ""
			}
			return e.states.EntityState(entityID)
		},
		"attr": func(entityID, attribute string) any {
			if e.states == nil {
				return nil
			}
			return e.states.EntityAttribute(entityID, attribute)
		},
	}

	for name, module := range e.modules {
		env[name] = module
	}

	return env
}
