package metrics

import (
	"fmt"
	"strings"
	"time"
)

var periodLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02", "2006-01"}

// ParsePeriod parses a dateFrom value in loc. Date-only values are interpreted in loc.
func ParsePeriod(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range periodLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// MonthStart returns midnight of the first day of t's month in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// MonthEnd returns the last instant of the month starting at start.
func MonthEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// PreviousMonthStart returns the start of the month before the one starting at start.
func PreviousMonthStart(start time.Time) time.Time {
	return start.AddDate(0, -1, 0)
}

func periodKey(p time.Time) string {
	return p.Format("2006-01")
}
