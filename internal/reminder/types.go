package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notexe/remindd/internal/recurrence"
)

// Reminder is a single user reminder with exactly one active recurrence kind.
type Reminder struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Time           string          `json:"time,omitempty"`
	RecurrenceType recurrence.Kind `json:"recurrence_type"`
	Date           string          `json:"date,omitempty"`
	WeeklyDays     []int           `json:"weekly_days,omitempty"`
	MonthlyDay     int             `json:"monthly_day,omitempty"`
	YearlyMonth    int             `json:"yearly_month,omitempty"`
	YearlyDay      int             `json:"yearly_day,omitempty"`
	Icon           string          `json:"icon,omitempty"`
	Recurring      bool            `json:"recurring"`
}

// NewID returns a fresh reminder id.
func NewID() string {
	return uuid.NewString()
}

// Rule returns the recurrence view of r.
func (r Reminder) Rule() recurrence.Rule {
	return recurrence.Rule{
		Kind:        r.RecurrenceType,
		Date:        r.Date,
		Time:        r.Time,
		WeeklyDays:  r.WeeklyDays,
		MonthlyDay:  r.MonthlyDay,
		YearlyMonth: r.YearlyMonth,
		YearlyDay:   r.YearlyDay,
	}
}

// Clone returns a deep copy of r.
func (r Reminder) Clone() Reminder {
	if r.WeeklyDays != nil {
		r.WeeklyDays = append([]int{}, r.WeeklyDays...)
	}
	return r
}

// Normalize trims the text, applies the save-time clamps and clears the
// fields that belong to other recurrence kinds.
func (r Reminder) Normalize() Reminder {
	r = r.Clone()
	r.Text = strings.TrimSpace(r.Text)
	r.Time = strings.TrimSpace(r.Time)
	if h, m, err := recurrence.ParseTimeOfDay(r.Time); err == nil {
		r.Time = recurrence.FormatTimeOfDay(h, m)
	}
	r.Recurring = r.RecurrenceType != recurrence.Once

	if r.RecurrenceType != recurrence.Once {
		r.Date = ""
	}
	if r.RecurrenceType != recurrence.Weekly {
		r.WeeklyDays = nil
	} else {
		r.WeeklyDays = normalizeDays(r.WeeklyDays)
	}
	if r.RecurrenceType != recurrence.Monthly {
		r.MonthlyDay = 0
	} else {
		r.MonthlyDay = recurrence.ClampMonthlyDay(r.MonthlyDay)
	}
	if r.RecurrenceType != recurrence.Yearly {
		r.YearlyMonth, r.YearlyDay = 0, 0
	} else {
		if r.YearlyMonth < 1 || r.YearlyMonth > 12 {
			r.YearlyMonth = 1
		}
		r.YearlyDay = recurrence.ClampYearlyDay(r.YearlyMonth, r.YearlyDay)
	}
	return r
}

func normalizeDays(days []int) []int {
	var seen [7]bool
	for _, d := range days {
		if d >= 0 && d < 7 {
			seen[d] = true
		}
	}
	out := make([]int, 0, len(days))
	for d, ok := range seen {
		if ok {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate reports every problem that would keep r from being evaluated.
func (r Reminder) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(r.Text) == "" {
		errs = append(errs, errors.New("text is required"))
	}
	if !r.RecurrenceType.Valid() {
		errs = append(errs, fmt.Errorf("unknown recurrence type: %q", r.RecurrenceType))
	}
	if r.Time != "" {
		if _, _, err := recurrence.ParseTimeOfDay(r.Time); err != nil {
			errs = append(errs, err)
		}
	} else if r.RecurrenceType != recurrence.Once {
		errs = append(errs, errors.New("time is required for recurring reminders"))
	}

	switch r.RecurrenceType {
	case recurrence.Once:
		if r.Date == "" {
			errs = append(errs, errors.New("date is required for one-time reminders"))
		} else if _, err := time.Parse(recurrence.DateLayout, r.Date); err != nil {
			errs = append(errs, fmt.Errorf("invalid date: %q", r.Date))
		}
	case recurrence.Weekly:
		for _, d := range r.WeeklyDays {
			if d < 0 || d > 6 {
				errs = append(errs, fmt.Errorf("weekday out of range: %d", d))
			}
		}
	case recurrence.Monthly:
		if r.MonthlyDay < 1 || r.MonthlyDay > 31 {
			errs = append(errs, fmt.Errorf("monthly day out of range: %d", r.MonthlyDay))
		}
	case recurrence.Yearly:
		if r.YearlyMonth < 1 || r.YearlyMonth > 12 {
			errs = append(errs, fmt.Errorf("yearly month out of range: %d", r.YearlyMonth))
		}
		if r.YearlyDay < 1 || r.YearlyDay > 31 {
			errs = append(errs, fmt.Errorf("yearly day out of range: %d", r.YearlyDay))
		}
	}
	return errors.Join(errs...)
}

// Completion records when a reminder was last marked done.
type Completion struct {
	ID          string `json:"id"`
	CompletedAt string `json:"completed_at"`
}

// BacklogEntry is text kept from a deleted reminder for input suggestions.
type BacklogEntry struct {
	Text string `json:"text"`
}

func cloneReminders(in []Reminder) []Reminder {
	if in == nil {
		return []Reminder{}
	}
	out := make([]Reminder, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func cloneCompletions(in []Completion) []Completion {
	return append(make([]Completion, 0, len(in)), in...)
}

func cloneBacklog(in []BacklogEntry) []BacklogEntry {
	return append(make([]BacklogEntry, 0, len(in)), in...)
}
