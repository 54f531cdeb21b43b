package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the format completion timestamps are written in:
// ISO-8601 local time without a zone, microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Fractional seconds after the seconds field are accepted by time.Parse
// even when the layout omits them.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

// FormatTimestamp renders t as a local ISO-8601 timestamp.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Timestamps without a zone
// are read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	return ParseTimestampIn(s, time.Local)
}

// ParseTimestampIn parses an ISO-8601 timestamp, reading zone-less values
// in loc.
func ParseTimestampIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q", s)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year, month int) int {
	if month < 1 || month > 12 {
		return 31
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EffectiveDay clamps day to the last real day of month in year.
func EffectiveDay(year, month, day int) int {
	if n := DaysIn(year, month); day > n {
		return n
	}
	return day
}

// ClampMonthlyDay keeps a monthly day inside 1..31.
func ClampMonthlyDay(day int) int {
	switch {
	case day < 1:
		return 1
	case day > 31:
		return 31
	}
	return day
}

// ClampYearlyDay is the save-time clamp for yearly reminders. February is
// capped at 29 for every year; the evaluator narrows it to 28 in common
// years. Other months use their real length.
func ClampYearlyDay(month, day int) int {
	if day < 1 {
		return 1
	}
	limit := 29
	if month != 2 {
		limit = DaysIn(2001, month)
	}
	if day > limit {
		return limit
	}
	return day
}

// NextOccurrence returns the fire time the rule is waiting for: the current
// period's occurrence when it has not been completed (which may lie in the
// past, meaning overdue), otherwise the next period's. It is a display
// helper and does not replicate every gate of IsDue. The boolean is false
// when the rule can never be scheduled.
func NextOccurrence(r Rule, now time.Time, lastCompletedAt string) (time.Time, bool) {
	loc := now.Location()
	if r.Kind == Once {
		return onceAt(r, loc)
	}
	h, m, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return time.Time{}, false
	}
	at := func(y int, mo time.Month, d int) time.Time {
		return time.Date(y, mo, d, h, m, 0, 0, loc)
	}
	done := suppressed(r.Kind, now, lastCompletedAt)
	y, mo, d := now.Date()

	switch r.Kind {
	case Daily:
		if done {
			return at(y, mo, d+1), true
		}
		return at(y, mo, d), true
	case Weekly:
		for i := 0; i <= 7; i++ {
			if i == 0 && done {
				continue
			}
			t := at(y, mo, d+i)
			if len(r.WeeklyDays) == 0 || containsDay(r.WeeklyDays, Weekday(t)) {
				return t, true
			}
		}
		return time.Time{}, false
	case Monthly:
		day := monthlyDay(r)
		start := 0
		if done {
			start = 1
		}
		// A 31st fires only in 31-day months, so look a year ahead.
		for i := start; i <= 12; i++ {
			first := time.Date(y, mo+time.Month(i), 1, 0, 0, 0, 0, loc)
			if DaysIn(first.Year(), int(first.Month())) >= day {
				return at(first.Year(), first.Month(), day), true
			}
		}
		return time.Time{}, false
	case Yearly:
		month, day := yearlyDate(r)
		year := y
		if done || int(mo) > month {
			year++
		}
		return at(year, time.Month(month), EffectiveDay(year, month, day)), true
	}
	return time.Time{}, false
}

var (
	weekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	monthNames   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// Describe renders the rule for list views, e.g. "Weekly (Mon, Wed)".
func Describe(r Rule) string {
	switch r.Kind {
	case Once:
		if r.Date == "" {
			return "One-time"
		}
		return fmt.Sprintf("One-time (%s)", r.Date)
	case Daily:
		return "Daily"
	case Weekly:
		if len(r.WeeklyDays) == 0 {
			return "Weekly"
		}
		names := make([]string, 0, len(r.WeeklyDays))
		for i := 0; i < 7; i++ {
			if containsDay(r.WeeklyDays, i) {
				names = append(names, weekdayNames[i])
			}
		}
		return fmt.Sprintf("Weekly (%s)", strings.Join(names, ", "))
	case Monthly:
		return fmt.Sprintf("Monthly (day %d)", monthlyDay(r))
	case Yearly:
		month, day := yearlyDate(r)
		if month > 12 {
			month = 12
		}
		return fmt.Sprintf("Yearly (%s %d)", monthNames[month-1], day)
	}
	return string(r.Kind)
}

// WeekdayName returns the short name of a Monday-based weekday index.
func WeekdayName(i int) string {
	if i < 0 || i > 6 {
		return "?"
	}
	return weekdayNames[i]
}
