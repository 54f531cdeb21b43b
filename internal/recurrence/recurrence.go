// Package recurrence decides whether a reminder is due at a given moment.
//
// Every function in this package is pure: the result depends only on the
// arguments. Malformed input never produces an error for the caller of
// IsDue; it degrades to "not due" for a malformed rule and to "not
// suppressing" for a malformed completion timestamp.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the recurrence type of a reminder.
type Kind string

const (
	Once    Kind = "once"
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Yearly  Kind = "yearly"
)

// Kinds lists the supported recurrence kinds in display order.
var Kinds = []Kind{Once, Daily, Weekly, Monthly, Yearly}

// Valid reports whether k is a known recurrence kind.
func (k Kind) Valid() bool {
	switch k {
	case Once, Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ParseKind maps user input to a Kind. "one-time" is accepted as an alias
// of once.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "one-time" || k == "onetime" {
		return Once, nil
	}
	if !k.Valid() {
		return "", fmt.Errorf("unknown recurrence type: %q", s)
	}
	return k, nil
}

// DateLayout is the calendar date format of one-time reminders.
const DateLayout = "2006-01-02"

// Rule is the part of a reminder that the evaluator looks at.
type Rule struct {
	Kind Kind
	// Date is the calendar date of a one-time reminder (YYYY-MM-DD).
	Date string
	// Time is the time of day as "HH:MM".
	Time string
	// WeeklyDays holds weekday indices, 0=Monday..6=Sunday. Empty means every day.
	WeeklyDays  []int
	MonthlyDay  int
	YearlyMonth int
	YearlyDay   int
}

// IsDue reports whether the rule fires at now. lastCompletedAt is the
// completion timestamp recorded for the reminder, or "" when there is none.
func IsDue(r Rule, now time.Time, lastCompletedAt string) bool {
	switch r.Kind {
	case Once:
		return onceDue(r, now)
	case Daily:
		return dailyDue(r, now, lastCompletedAt)
	case Weekly:
		return weeklyDue(r, now, lastCompletedAt)
	case Monthly:
		return monthlyDue(r, now, lastCompletedAt)
	case Yearly:
		return yearlyDue(r, now, lastCompletedAt)
	default:
		return false
	}
}

// IsCompleted reports whether the latest completion counts as "done" for
// the current period. One-time reminders are done as soon as any record
// exists.
func IsCompleted(r Rule, now time.Time, lastCompletedAt string) bool {
	if lastCompletedAt == "" {
		return false
	}
	if r.Kind == Once {
		return true
	}
	return suppressed(r.Kind, now, lastCompletedAt)
}

// suppressed reports whether a completion timestamp falls in the same
// period as now. An unparseable timestamp never suppresses.
func suppressed(k Kind, now time.Time, lastCompletedAt string) bool {
	if lastCompletedAt == "" {
		return false
	}
	done, err := ParseTimestampIn(lastCompletedAt, now.Location())
	if err != nil {
		return false
	}
	done = done.In(now.Location())
	switch k {
	case Daily, Weekly:
		return sameDay(done, now)
	case Monthly:
		return done.Year() == now.Year() && done.Month() == now.Month()
	case Yearly:
		return done.Year() == now.Year()
	}
	return false
}

func onceDue(r Rule, now time.Time) bool {
	at, ok := onceAt(r, now.Location())
	if !ok {
		return false
	}
	return !now.Before(at)
}

// onceAt combines the date and time of a one-time rule. A missing time
// means start of day.
func onceAt(r Rule, loc *time.Location) (time.Time, bool) {
	if strings.TrimSpace(r.Date) == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.Date), loc)
	if err != nil {
		return time.Time{}, false
	}
	if strings.TrimSpace(r.Time) == "" {
		return day, true
	}
	h, m, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), true
}

func dailyDue(r Rule, now time.Time, last string) bool {
	h, m, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return false
	}
	if suppressed(Daily, now, last) {
		return false
	}
	return reached(now, h, m)
}

func weeklyDue(r Rule, now time.Time, last string) bool {
	h, m, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return false
	}
	if len(r.WeeklyDays) > 0 && !containsDay(r.WeeklyDays, Weekday(now)) {
		return false
	}
	if suppressed(Weekly, now, last) {
		return false
	}
	return reached(now, h, m)
}

func monthlyDue(r Rule, now time.Time, last string) bool {
	h, m, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return false
	}
	if suppressed(Monthly, now, last) {
		return false
	}
	if now.Day() < monthlyDay(r) {
		return false
	}
	return reached(now, h, m)
}

func yearlyDue(r Rule, now time.Time, last string) bool {
	h, m, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return false
	}
	if suppressed(Yearly, now, last) {
		return false
	}
	month, day := yearlyDate(r)
	if int(now.Month()) != month {
		return false
	}
	if now.Day() < EffectiveDay(now.Year(), month, day) {
		return false
	}
	return reached(now, h, m)
}

func monthlyDay(r Rule) int {
	if r.MonthlyDay <= 0 {
		return 1
	}
	return r.MonthlyDay
}

func yearlyDate(r Rule) (month, day int) {
	month, day = r.YearlyMonth, r.YearlyDay
	if month <= 0 {
		month = 1
	}
	if day <= 0 {
		day = 1
	}
	return month, day
}

// reached compares (hour, minute) of now against the configured time of day.
func reached(now time.Time, h, m int) bool {
	if now.Hour() != h {
		return now.Hour() > h
	}
	return now.Minute() >= m
}

func containsDay(days []int, d int) bool {
	for _, v := range days {
		if v == d {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Weekday returns the weekday index of t with Monday as 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseTimeOfDay parses "H:M" into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day: %q", s)
	}
	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return hour, minute, nil
}

// FormatTimeOfDay renders hour and minute as "HH:MM".
func FormatTimeOfDay(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
