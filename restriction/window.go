package restriction

import (
	"strconv"
	"strings"
	"time"
)

// clockSeconds parses "HH:MM:SS" into seconds since midnight. Missing or
// malformed values degrade to midnight rather than failing the run.
func clockSeconds(s string) int {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return h*3600 + m*60 + sec
}

// Active reports whether a rule with the given day spec and time window
// applies at now. A window whose start is after its finish wraps past
// midnight ("22:00:00"-"06:00:00" covers 23:30 but not 12:00).
func Active(daysSpec, start, finish string, now time.Time) bool {
	weekday := WeekdayIndex(int(now.Weekday()))
	dayOK := false
	for _, d := range ExpandDays(daysSpec) {
		if d == weekday {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	t0 := clockSeconds(start)
	t1 := clockSeconds(finish)
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()

	if t0 <= t1 {
		return t0 <= nowSec && nowSec <= t1
	}
	return nowSec >= t0 || nowSec <= t1
}
