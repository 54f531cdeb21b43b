package reminder

import (
	"fmt"
	"sort"
	"time"

	"github.com/notexe/remindd/internal/recurrence"
)

// Status is a reminder evaluated at a moment.
type Status struct {
	Reminder
	Due             bool       `json:"due"`
	Completed       bool       `json:"completed"`
	LastCompletedAt string     `json:"last_completed_at,omitempty"`
	Schedule        string     `json:"schedule"`
	Next            *time.Time `json:"next,omitempty"`
}

// Evaluate computes the status of every reminder at now. completions maps
// reminder ids to their latest completion timestamp.
func Evaluate(reminders []Reminder, completions map[string]string, now time.Time) []Status {
	out := make([]Status, 0, len(reminders))
	for _, r := range reminders {
		last := completions[r.ID]
		rule := r.Rule()
		st := Status{
			Reminder:        r.Clone(),
			Due:             recurrence.IsDue(rule, now, last),
			Completed:       recurrence.IsCompleted(rule, now, last),
			LastCompletedAt: last,
			Schedule:        recurrence.Describe(rule),
		}
		if next, ok := recurrence.NextOccurrence(rule, now, last); ok {
			st.Next = &next
		}
		out = append(out, st)
	}
	return out
}

// Due returns the reminders of s that are due at now.
func (s *Store) Due(now time.Time) []Reminder {
	var due []Reminder
	for _, st := range Evaluate(s.Reminders(), s.LatestCompletions(), now) {
		if st.Due {
			due = append(due, st.Reminder)
		}
	}
	return due
}

// Statuses evaluates every reminder of s at now, sorted for display.
func (s *Store) Statuses(now time.Time) []Status {
	out := Evaluate(s.Reminders(), s.LatestCompletions(), now)
	SortForDisplay(out, now)
	return out
}

// FilterStatuses keeps the statuses matching filter: "" for all, "due",
// "completed" or "pending" (not completed). An unknown filter is an error
// even when there is nothing to filter.
func FilterStatuses(statuses []Status, filter string) ([]Status, error) {
	var keep func(Status) bool
	switch filter {
	case "":
		return statuses, nil
	case "due":
		keep = func(st Status) bool { return st.Due }
	case "completed":
		keep = func(st Status) bool { return st.Completed }
	case "pending":
		keep = func(st Status) bool { return !st.Completed }
	default:
		return nil, fmt.Errorf("unknown status filter: %q", filter)
	}

	var out []Status
	for _, st := range statuses {
		if keep(st) {
			out = append(out, st)
		}
	}
	return out, nil
}

// SortForDisplay orders statuses completed first, then by today's fire
// time (the calendar date for one-time reminders). Reminders without a
// usable time go last.
func SortForDisplay(statuses []Status, now time.Time) {
	key := func(st Status) (time.Time, bool) {
		if st.RecurrenceType == recurrence.Once {
			return recurrence.NextOccurrence(st.Rule(), now, "")
		}
		h, m, err := recurrence.ParseTimeOfDay(st.Time)
		if err != nil {
			return time.Time{}, false
		}
		y, mo, d := now.Date()
		return time.Date(y, mo, d, h, m, 0, 0, now.Location()), true
	}
	sort.SliceStable(statuses, func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		if a.Completed != b.Completed {
			return a.Completed
		}
		ka, okA := key(a)
		kb, okB := key(b)
		if okA != okB {
			return okA
		}
		return ka.Before(kb)
	})
}
