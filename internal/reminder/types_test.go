package reminder

import (
	"encoding/json"
	"testing"

	"github.com/notexe/remindd/internal/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Reminder
		want Reminder
	}{
		{
			name: "weekly days sorted and deduped",
			in:   Reminder{ID: "a", Text: "  Gym ", Time: "7:5", RecurrenceType: recurrence.Weekly, WeeklyDays: []int{4, 0, 4, 9}, MonthlyDay: 3},
			want: Reminder{ID: "a", Text: "Gym", Time: "07:05", RecurrenceType: recurrence.Weekly, WeeklyDays: []int{0, 4}, Recurring: true},
		},
		{
			name: "monthly day clamped",
			in:   Reminder{ID: "b", Text: "Rent", Time: "10:00", RecurrenceType: recurrence.Monthly, MonthlyDay: 40, Date: "2025-01-01"},
			want: Reminder{ID: "b", Text: "Rent", Time: "10:00", RecurrenceType: recurrence.Monthly, MonthlyDay: 31, Recurring: true},
		},
		{
			name: "yearly february fixed at 29",
			in:   Reminder{ID: "c", Text: "Leap", Time: "09:00", RecurrenceType: recurrence.Yearly, YearlyMonth: 2, YearlyDay: 31},
			want: Reminder{ID: "c", Text: "Leap", Time: "09:00", RecurrenceType: recurrence.Yearly, YearlyMonth: 2, YearlyDay: 29, Recurring: true},
		},
		{
			name: "once keeps date and drops recurring fields",
			in:   Reminder{ID: "d", Text: "Dentist", Time: "14:30", RecurrenceType: recurrence.Once, Date: "2025-05-02", WeeklyDays: []int{1}, Recurring: true},
			want: Reminder{ID: "d", Text: "Dentist", Time: "14:30", RecurrenceType: recurrence.Once, Date: "2025-05-02"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Reminder{ID: "a", Text: "Stretch", Time: "08:00", RecurrenceType: recurrence.Daily}
	assert.NoError(t, ok.Validate())

	once := Reminder{ID: "b", Text: "Dentist", RecurrenceType: recurrence.Once, Date: "2025-05-02"}
	assert.NoError(t, once.Validate())

	bad := Reminder{RecurrenceType: "hourly", Time: "25:00"}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")
	assert.Contains(t, err.Error(), "text is required")
	assert.Contains(t, err.Error(), "unknown recurrence type")

	noDate := Reminder{ID: "c", Text: "x", RecurrenceType: recurrence.Once, Date: "05/02/2025"}
	assert.ErrorContains(t, noDate.Validate(), "invalid date")

	noTime := Reminder{ID: "d", Text: "x", RecurrenceType: recurrence.Weekly}
	assert.ErrorContains(t, noTime.Validate(), "time is required")

	monthly := Reminder{ID: "e", Text: "x", Time: "08:00", RecurrenceType: recurrence.Monthly}
	assert.ErrorContains(t, monthly.Validate(), "monthly day out of range")
}

func TestReminderJSON(t *testing.T) {
	var r Reminder
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "r1",
		"text": "Rent",
		"time": "09:00",
		"recurrence_type": "monthly",
		"monthly_day": 31,
		"recurring": true
	}`), &r))
	assert.Equal(t, Reminder{ID: "r1", Text: "Rent", Time: "09:00", RecurrenceType: recurrence.Monthly, MonthlyDay: 31, Recurring: true}, r)

	data, err := json.Marshal(Reminder{ID: "x", Text: "t", RecurrenceType: recurrence.Once, Date: "2025-01-01"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","text":"t","recurrence_type":"once","date":"2025-01-01","recurring":false}`, string(data))
}

func TestSettingsClone(t *testing.T) {
	s := DefaultSettings().WithWindowPos(SurfaceAddNotify, WindowPos{X: 1, Y: 2})
	c := s.Clone()
	pos := c[SurfaceAddNotify].WindowPos
	pos.X = 99

	got, ok := s.WindowPos(SurfaceAddNotify)
	require.True(t, ok)
	assert.Equal(t, 1, got.X)

	_, ok = s.WindowPos(SurfaceNotifyList)
	assert.False(t, ok)
	assert.Equal(t, MaxCheckInterval, s.WithCheckInterval(MaxCheckInterval*2).CheckInterval())
}

func TestDefaultSettingsDocument(t *testing.T) {
	data, err := json.Marshal(DefaultSettings())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"settings_dialog": {"reminder_check_interval_sec": 60},
		"notify_list_dialog": {},
		"add_notify_dialog": {}
	}`, string(data))

	s := DefaultSettings().WithAutostart(true)
	assert.True(t, s[SurfaceSettingsDialog].Autostart)
	assert.False(t, DefaultSettings().Autostart())
}
