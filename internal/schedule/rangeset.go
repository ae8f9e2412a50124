package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// span is a single inclusive integer range.
type span struct {
	lo, hi int
}

// RangeSet is a set of integers expressed as inclusive ranges, used for
// calendar constraints on schedule rules.
//
// The textual form is comma-separated single values and hyphen ranges,
// whitespace-tolerant: "1,3-5" contains 1, 3, 4 and 5. A bare integer
// is a one-element set.
//
// A nil *RangeSet means the constraint is not declared and matches
// every value.
type RangeSet struct {
	spans []span
}

// ParseRangeSet parses the "1,3-5" constraint grammar.
//
// Returns:
//   - *RangeSet: parsed set
//   - error: if the input is empty or malformed
func ParseRangeSet(input string) (*RangeSet, error) {
	parts := strings.Split(input, ",")
	rs := &RangeSet{}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("range set %q: empty segment", input)
		}

		if lo, hi, found := cutRange(part); found {
			loN, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("range set %q: invalid lower bound %q", input, lo)
			}
			hiN, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("range set %q: invalid upper bound %q", input, hi)
			}
			if hiN < loN {
				return nil, fmt.Errorf("range set %q: range %d-%d is inverted", input, loN, hiN)
			}
			rs.spans = append(rs.spans, span{lo: loN, hi: hiN})
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("range set %q: invalid value %q", input, part)
		}
		rs.spans = append(rs.spans, span{lo: n, hi: n})
	}

	if len(rs.spans) == 0 {
		return nil, fmt.Errorf("range set %q: no values", input)
	}

	sort.Slice(rs.spans, func(i, j int) bool {
		return rs.spans[i].lo < rs.spans[j].lo
	})

	return rs, nil
}

// cutRange splits "3-5" into bounds. A leading hyphen is part of a
// negative number, not a range separator.
func cutRange(part string) (lo, hi string, found bool) {
	idx := strings.Index(part[1:], "-")
	if idx < 0 {
		return "", "", false
	}
	idx++ // compensate for the [1:] slice
	return part[:idx], part[idx+1:], true
}

// RangeSetFromValue builds a RangeSet from a YAML value: a bare
// integer, the textual range grammar, or a sequence mixing both
// ("weekdays: [1, \"3-5\"]").
func RangeSetFromValue(value any) (*RangeSet, error) {
	switch v := value.(type) {
	case int:
		return &RangeSet{spans: []span{{lo: v, hi: v}}}, nil
	case int64:
		return &RangeSet{spans: []span{{lo: int(v), hi: int(v)}}}, nil
	case string:
		return ParseRangeSet(v)
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("range set: empty list")
		}
		rs := &RangeSet{}
		for _, item := range v {
			sub, err := RangeSetFromValue(item)
			if err != nil {
				return nil, err
			}
			rs.spans = append(rs.spans, sub.spans...)
		}
		sort.Slice(rs.spans, func(i, j int) bool {
			return rs.spans[i].lo < rs.spans[j].lo
		})
		return rs, nil
	default:
		return nil, fmt.Errorf("range set: unsupported type %T", value)
	}
}

// Contains reports whether n is a member of the set.
// A nil receiver (undeclared constraint) contains everything.
func (rs *RangeSet) Contains(n int) bool {
	if rs == nil {
		return true
	}
	for _, s := range rs.spans {
		if n >= s.lo && n <= s.hi {
			return true
		}
	}
	return false
}

// String renders the set back in constraint grammar form.
func (rs *RangeSet) String() string {
	if rs == nil {
		return "*"
	}
	parts := make([]string, 0, len(rs.spans))
	for _, s := range rs.spans {
		if s.lo == s.hi {
			parts = append(parts, strconv.Itoa(s.lo))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", s.lo, s.hi))
		}
	}
	return strings.Join(parts, ",")
}
