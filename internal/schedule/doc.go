// Package schedule implements the rule-matching engine that decides
// which temperature a room's schedule prescribes at a point in time.
//
// A room's schedule is an ordered list of rules. Each rule carries a
// temperature expression, a time-of-day window (start, end, and an
// end-day offset for windows wrapping past midnight), and optional
// calendar constraints (years, months, days of month, ISO weeks,
// weekdays) expressed as inclusive integer range-sets ("1,3-5").
//
// Resolution is first-match-wins: rules are tested in list order, and
// the first rule whose constraints and window match and whose
// expression does not abstain (Ignore) decides the result. A rule
// resolving to NoChange halts resolution entirely, telling the caller
// to leave the currently active temperature in place.
//
// Defaults follow the config schema: a missing start is 00:00, and a
// missing end is 00:00 with an implicit end-day offset of 1, so a rule
// with neither matches every point in time and works as a fallback at
// the end of the list.
package schedule
