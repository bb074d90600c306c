package restriction

import "strings"

// Weekday indices follow the signage convention: Mon=0 .. Sun=6.
var dayIndex = map[string]int{
	"MON": 0, "TUE": 1, "WED": 2, "THU": 3, "FRI": 4, "SAT": 5, "SUN": 6,
}

func allDays() []int {
	return []int{0, 1, 2, 3, 4, 5, 6}
}

// ExpandDays parses specs like "Mon-Fri", "Mon,Wed,Fri", "Sat" or "Fri-Mon"
// (wrap-around) into weekday indices. Missing or unparseable specs default to
// every day; duplicates collapse, first occurrence order is kept.
func ExpandDays(spec string) []int {
	if spec == "" {
		return allDays()
	}

	s := strings.ToUpper(strings.ReplaceAll(spec, " ", ""))
	// Some plates append extra text like "Public Holidays".
	s = strings.ReplaceAll(s, "PUBLICHOLIDAYS", "")

	switch s {
	case "DAILY", "EVERYDAY", "MON-SUN":
		return allDays()
	}

	var days []int
	for _, part := range strings.Split(s, ",") {
		if a, b, found := strings.Cut(part, "-"); found {
			aIdx, aOK := lookupDay(a)
			bIdx, bOK := lookupDay(b)
			if !aOK || !bOK {
				continue
			}
			if aIdx <= bIdx {
				for d := aIdx; d <= bIdx; d++ {
					days = append(days, d)
				}
			} else {
				// Wrap-around range like "Fri-Mon".
				for d := aIdx; d <= 6; d++ {
					days = append(days, d)
				}
				for d := 0; d <= bIdx; d++ {
					days = append(days, d)
				}
			}
		} else if idx, ok := lookupDay(part); ok {
			days = append(days, idx)
		}
	}

	out := dedupe(days)
	if len(out) == 0 {
		return allDays()
	}
	return out
}

func lookupDay(token string) (int, bool) {
	if len(token) < 3 {
		return 0, false
	}
	idx, ok := dayIndex[token[:3]]
	return idx, ok
}

func dedupe(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			out = append(out, d)
			seen[d] = true
		}
	}
	return out
}

// WeekdayIndex converts a time.Weekday-style value (Sunday=0) into the
// signage convention (Mon=0 .. Sun=6).
func WeekdayIndex(goWeekday int) int {
	return (goWeekday + 6) % 7
}
