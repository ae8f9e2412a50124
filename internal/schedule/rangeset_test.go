package schedule

import "testing"

func TestParseRangeSet(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		contains   []int
		excludes   []int
		wantErr    bool
		wantString string
	}{
		{
			name:       "single value",
			input:      "3",
			contains:   []int{3},
			excludes:   []int{2, 4},
			wantString: "3",
		},
		{
			name:       "simple range",
			input:      "3-5",
			contains:   []int{3, 4, 5},
			excludes:   []int{2, 6},
			wantString: "3-5",
		},
		{
			name:       "mixed values and ranges",
			input:      "1,3-5",
			contains:   []int{1, 3, 4, 5},
			excludes:   []int{2, 6},
			wantString: "1,3-5",
		},
		{
			name:       "whitespace tolerant",
			input:      " 1 , 3 - 5 ",
			contains:   []int{1, 4},
			excludes:   []int{2},
			wantString: "1,3-5",
		},
		{
			name:       "unsorted input is sorted",
			input:      "5,1-2",
			contains:   []int{1, 2, 5},
			excludes:   []int{3},
			wantString: "1-2,5",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "trailing comma",
			input:   "1,",
			wantErr: true,
		},
		{
			name:    "inverted range",
			input:   "5-3",
			wantErr: true,
		},
		{
			name:    "non-numeric",
			input:   "mon-fri",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := ParseRangeSet(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRangeSet(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for _, n := range tt.contains {
				if !rs.Contains(n) {
					t.Errorf("Contains(%d) = false, want true", n)
				}
			}
			for _, n := range tt.excludes {
				if rs.Contains(n) {
					t.Errorf("Contains(%d) = true, want false", n)
				}
			}
			if got := rs.String(); got != tt.wantString {
				t.Errorf("String() = %q, want %q", got, tt.wantString)
			}
		})
	}
}

func TestRangeSetFromValue(t *testing.T) {
	rs, err := RangeSetFromValue(4)
	if err != nil {
		t.Fatalf("RangeSetFromValue(4) error = %v", err)
	}
	if !rs.Contains(4) || rs.Contains(3) {
		t.Error("bare integer should be a one-element set")
	}

	rs, err = RangeSetFromValue("1-3")
	if err != nil {
		t.Fatalf("RangeSetFromValue(string) error = %v", err)
	}
	if !rs.Contains(2) {
		t.Error("Contains(2) = false for 1-3")
	}

	rs, err = RangeSetFromValue([]any{1, "3-5"})
	if err != nil {
		t.Fatalf("RangeSetFromValue(list) error = %v", err)
	}
	for _, n := range []int{1, 3, 4, 5} {
		if !rs.Contains(n) {
			t.Errorf("Contains(%d) = false for [1, 3-5]", n)
		}
	}
	if rs.Contains(2) {
		t.Error("Contains(2) = true for [1, 3-5]")
	}

	if _, err := RangeSetFromValue([]any{}); err == nil {
		t.Error("RangeSetFromValue(empty list) expected error")
	}

	if _, err := RangeSetFromValue([]any{3.5}); err == nil {
		t.Error("RangeSetFromValue(list of floats) expected error")
	}

	if _, err := RangeSetFromValue(3.5); err == nil {
		t.Error("RangeSetFromValue(float) expected error")
	}
}

func TestRangeSet_NilContainsEverything(t *testing.T) {
	var rs *RangeSet
	for _, n := range []int{-10, 0, 7, 2026} {
		if !rs.Contains(n) {
			t.Errorf("nil RangeSet Contains(%d) = false, want true", n)
		}
	}
	if rs.String() != "*" {
		t.Errorf("nil RangeSet String() = %q, want *", rs.String())
	}
}
