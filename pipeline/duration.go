package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hoursPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*h(?:ours?)?`)
	minutesPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*m(?:in(?:ute)?s?)?`)
	secondsPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*s(?:ec(?:ond)?s?)?`)
)

// ParseDuration converts a free-form duration string into whole seconds.
// ok is false when no duration is set: empty input, unparseable input, or a
// result of exactly zero all mean "auto".
//
// Accepted forms: "MM:SS" / "HH:MM:SS", descriptive components ("1h30m",
// "90min", "45s", possibly combined), and a bare number which is read as
// minutes.
func ParseDuration(input string) (int, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		return parseColonForm(s)
	}

	total := 0.0
	matched := false
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		total += v * 3600
		matched = true
	}
	if loc := minutesPattern.FindStringSubmatchIndex(s); loc != nil {
		// A minutes marker immediately followed by "s" is something else
		// entirely ("ms"); skip it.
		if loc[1] >= len(s) || (s[loc[1]] != 's' && s[loc[1]] != 'S') {
			v, _ := strconv.ParseFloat(s[loc[2]:loc[3]], 64)
			total += v * 60
			matched = true
		}
	}
	if m := secondsPattern.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		total += v
		matched = true
	}

	if !matched {
		// Bare number means minutes; people type "5" for a five-minute video.
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		total = v * 60
	}

	secs := int(math.Round(total))
	if secs <= 0 {
		return 0, false
	}
	return secs, true
}

func parseColonForm(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}
	secs := 0
	if len(nums) == 2 {
		secs = nums[0]*60 + nums[1]
	} else {
		secs = nums[0]*3600 + nums[1]*60 + nums[2]
	}
	if secs <= 0 {
		return 0, false
	}
	return secs, true
}

// FormatDuration renders seconds as a compact human string ("45s", "2m 5s",
// "1h 5m"). Its output always parses back to the same value.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	parts := []string{}
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}
