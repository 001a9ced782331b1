package pipeline

import "testing"

func TestParseDuration(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"5s", 5, true},
		{"2m", 120, true},
		{"90min", 5400, true},
		{"90 minutes", 5400, true},
		{"1h30m", 5400, true},
		{"1h", 3600, true},
		{"2 hours", 7200, true},
		{"1h 5m 30s", 3930, true},
		{"2m 5s", 125, true},
		{"1:30", 90, true},
		{"1:30:00", 5400, true},
		{"0:45", 45, true},
		{"5", 300, true}, // bare number reads as minutes
		{"1.5", 90, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"500ms", 0, false},
		{"0", 0, false},
		{"0s", 0, false},
		{"1:2:3:4", 0, false},
		{"1:xx", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseDuration(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseDuration(%q) = (%d, %v), want (%d, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{45, "45s"},
		{125, "2m 5s"},
		{3900, "1h 5m"},
		{3600, "1h"},
		{60, "1m"},
		{3930, "1h 5m 30s"},
		{0, "0s"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	// Every canonical string the formatter produces must parse back to the
	// same value.
	for _, n := range []int{1, 5, 45, 59, 60, 61, 119, 120, 125, 599, 3599, 3600, 3660, 3900, 3930, 5400, 7265, 86399} {
		formatted := FormatDuration(n)
		parsed, ok := ParseDuration(formatted)
		if !ok {
			t.Fatalf("ParseDuration(%q) unexpectedly null for n=%d", formatted, n)
		}
		if parsed != n {
			t.Errorf("round trip: n=%d format=%q parsed=%d", n, formatted, parsed)
		}
		if again := FormatDuration(parsed); again != formatted {
			t.Errorf("format stability: n=%d first=%q second=%q", n, formatted, again)
		}
	}
}
