package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/emberhaus/ember-core/internal/tempexpr"
)

// day is one day on the rule's day-normalized timeline.
const day = 24 * time.Hour

// Rule is one entry in a room's ordered schedule.
//
// A rule matches an instant iff the time of day falls inside the
// rule's window for some anchor day, and every declared calendar
// constraint contains that anchor day's date fields. The window is
// [Start, End+EndPlusDays·24h), so it may wrap past midnight into
// following days when EndPlusDays > 0; constraints always apply to the
// day the window started on.
//
// Rules are immutable after config load.
type Rule struct {
	// Temp produces the rule's temperature when the rule matches.
	Temp *tempexpr.Compiled

	// Name is an optional label used in logs.
	Name string

	// Start and End are offsets from midnight. A missing start parses
	// to 00:00; a missing end parses to 00:00 with EndPlusDays forced
	// to at least 1 so the window extends to the end of the day.
	Start time.Duration
	End   time.Duration

	// EndPlusDays shifts the window end into subsequent days.
	EndPlusDays int

	// Calendar constraints; nil means the constraint is not declared.
	// Years are calendar years, Weekdays use ISO numbering
	// (Monday=1 .. Sunday=7), Weeks are ISO week-of-year numbers.
	Years    *RangeSet
	Months   *RangeSet
	Days     *RangeSet
	Weeks    *RangeSet
	Weekdays *RangeSet
}

// Matches reports whether the rule is active at the given instant.
//
// The window is [Start, End+EndPlusDays·24h) on a day-normalized
// timeline, so the instant may sit k days past the day the window
// started on. Each candidate anchor day (the instant's day shifted
// back k days, for k in [0, EndPlusDays]) is tried in turn: the rule
// matches if for some k the shifted time of day falls in the window
// AND the anchor day satisfies the calendar constraints. A Friday
// night rule spilling past midnight therefore still governs the early
// Saturday hours, because the span stays anchored on Friday.
func (r *Rule) Matches(at time.Time) bool {
	timeOfDay := time.Duration(at.Hour())*time.Hour +
		time.Duration(at.Minute())*time.Minute +
		time.Duration(at.Second())*time.Second

	windowEnd := r.End + time.Duration(r.EndPlusDays)*day

	for k := 0; k <= r.EndPlusDays; k++ {
		shifted := timeOfDay + time.Duration(k)*day
		if shifted >= r.Start && shifted < windowEnd && r.matchesDate(at.AddDate(0, 0, -k)) {
			return true
		}
	}
	return false
}

// matchesDate tests every declared calendar constraint against the
// anchor day's date fields.
func (r *Rule) matchesDate(at time.Time) bool {
	_, isoWeek := at.ISOWeek()

	return r.Years.Contains(at.Year()) &&
		r.Months.Contains(int(at.Month())) &&
		r.Days.Contains(at.Day()) &&
		r.Weeks.Contains(isoWeek) &&
		r.Weekdays.Contains(isoWeekday(at))
}

// isoWeekday returns the weekday in ISO numbering (Monday=1 .. Sunday=7).
func isoWeekday(at time.Time) int {
	wd := int(at.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from
// midnight. "24:00" is not accepted; a full-day window is expressed as
// end 00:00 with an end-day offset.
func ParseTimeOfDay(input string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("time of day %q: want HH:MM or HH:MM:SS", input)
	}

	var h, m, s int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time of day %q: invalid hour", input)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q: invalid minute", input)
	}
	if len(parts) == 3 {
		if _, err := fmt.Sscanf(parts[2], "%d", &s); err != nil || s < 0 || s > 59 {
			return 0, fmt.Errorf("time of day %q: invalid second", input)
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second, nil
}
