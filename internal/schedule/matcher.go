package schedule

import (
	"time"

	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// Evaluator evaluates a rule's compiled temperature expression.
// Implemented by tempexpr.Evaluator.
type Evaluator interface {
	Evaluate(c *tempexpr.Compiled, now time.Time) (tempexpr.Result, error)
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

// Outcome is the result of resolving a rule list at an instant.
type Outcome struct {
	// Matched is false when no rule produced a target (no rule matched,
	// or a matching rule resolved to NoChange). The caller leaves the
	// currently active temperature untouched.
	Matched bool

	// Result is the winning rule's temperature (Numeric or Off).
	// Only meaningful when Matched is true.
	Result tempexpr.Result

	// RuleIndex is the position of the winning rule. Only meaningful
	// when Matched is true.
	RuleIndex int
}

// NoMatch is the outcome when resolution produced no target.
var NoMatch = Outcome{}

// Matcher resolves ordered rule lists to temperature targets.
type Matcher struct {
	evaluator Evaluator
	logger    Logger
}

// NewMatcher creates a Matcher. logger may be nil.
func NewMatcher(evaluator Evaluator, logger Logger) *Matcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Matcher{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Resolve walks the rule list in order and returns the first match
// that yields a target.
//
// For each rule the calendar constraints and time window are tested
// first; only matching rules have their expression evaluated. An
// expression resolving to Ignore passes control to the next rule. An
// expression resolving to NoChange halts resolution with NoMatch, as
// does a runtime evaluation failure (logged, recovered locally).
//
// Parameters:
//   - rules: the room's ordered schedule
//   - at: the instant to resolve for
//
// Returns:
//   - Outcome: first-match-wins target, or NoMatch
func (m *Matcher) Resolve(rules []Rule, at time.Time) Outcome {
	for i := range rules {
		rule := &rules[i]
		if !rule.Matches(at) {
			continue
		}

		result, err := m.evaluator.Evaluate(rule.Temp, at)
		if err != nil {
			// Evaluation failures degrade to NoChange: stop resolving
			// and leave the current temperature alone.
			m.logger.Warn("schedule rule evaluation failed",
				"rule", rule.Name,
				"index", i,
				"error", err,
			)
			return NoMatch
		}

		switch result.Kind {
		case tempexpr.KindIgnore:
			continue
		case tempexpr.KindNoChange:
			return NoMatch
		default:
			return Outcome{Matched: true, Result: result, RuleIndex: i}
		}
	}

	return NoMatch
}
