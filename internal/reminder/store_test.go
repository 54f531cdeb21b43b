package reminder

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/notexe/remindd/internal/recurrence"
	"github.com/notexe/remindd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.April, 30, 9, 30, 0, 0, time.Local)

func newTestStore(t *testing.T, backend storage.Backend) (*Store, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	s := NewStore(backend,
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(log.New(&logs, "", 0)),
	)
	return s, &logs
}

func daily(id, text, at string) Reminder {
	return Reminder{ID: id, Text: text, Time: at, RecurrenceType: recurrence.Daily, Recurring: true}
}

func TestNewStoreStartsEmpty(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	assert.Empty(t, s.Reminders())
	assert.NotNil(t, s.Reminders())
	assert.Empty(t, s.Backlog())
	assert.Empty(t, s.Completions())
	assert.Equal(t, DefaultCheckInterval, s.Settings().CheckInterval())
}

func TestReplaceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewFiles(dir, nil)
	require.NoError(t, err)

	s, _ := newTestStore(t, files)
	reminders := []Reminder{
		daily("a", "Stretch", "08:00"),
		{ID: "b", Text: "Rent", Time: "10:00", RecurrenceType: recurrence.Monthly, MonthlyDay: 1, Recurring: true},
		{ID: "c", Text: "Dentist", Time: "14:30", RecurrenceType: recurrence.Once, Date: "2025-05-02"},
	}
	s.ReplaceReminders(reminders)
	s.ReplaceBacklog([]BacklogEntry{{Text: "Call mom"}})
	s.ReplaceCompletions([]Completion{{ID: "a", CompletedAt: "2025-04-30T08:05:00.000000"}})

	assert.Equal(t, reminders, s.Reminders())

	reloaded, _ := newTestStore(t, files)
	assert.Equal(t, reminders, reloaded.Reminders())
	assert.Equal(t, []BacklogEntry{{Text: "Call mom"}}, reloaded.Backlog())
	assert.Equal(t, s.Completions(), reloaded.Completions())
}

func TestGetReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceReminders([]Reminder{{ID: "w", Text: "Gym", Time: "07:00", RecurrenceType: recurrence.Weekly, WeeklyDays: []int{0, 2}}})

	got := s.Reminders()
	got[0].Text = "changed"
	got[0].WeeklyDays[0] = 6

	r, ok := s.Reminder("w")
	require.True(t, ok)
	assert.Equal(t, "Gym", r.Text)
	assert.Equal(t, []int{0, 2}, r.WeeklyDays)

	v, err := s.Get(CollectionReminders)
	require.NoError(t, err)
	assert.Len(t, v.([]Reminder), 1)

	_, err = s.Get("bogus")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestAddReminder(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	r, err := s.AddReminder(Reminder{Text: "Water plants", Time: "18:00", RecurrenceType: recurrence.Daily})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	_, err = s.AddReminder(Reminder{ID: r.ID, Text: "again"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, s.Reminders(), 1)
}

func TestCompletionIsUniquePerReminder(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceReminders([]Reminder{daily("a", "Stretch", "08:00")})

	s.AddCompletion("a")
	c := s.AddCompletion("a")

	comps := s.Completions()
	require.Len(t, comps, 1)
	assert.Equal(t, c, comps[0])
	assert.Equal(t, "2025-04-30T09:30:00.000000", c.CompletedAt)

	last, ok := s.LastCompletion("a")
	assert.True(t, ok)
	assert.Equal(t, c.CompletedAt, last)

	assert.True(t, s.RemoveCompletion("a"))
	assert.False(t, s.RemoveCompletion("a"))
	_, ok = s.LastCompletion("a")
	assert.False(t, ok)
}

func TestUpdateReminderClearsCompletion(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceReminders([]Reminder{daily("a", "Stretch", "08:00")})
	s.AddCompletion("a")

	assert.True(t, s.UpdateReminder("a", daily("ignored", "Stretch more", "09:00")))
	r, ok := s.Reminder("a")
	require.True(t, ok)
	assert.Equal(t, "Stretch more", r.Text)
	assert.Empty(t, s.Completions())

	assert.False(t, s.UpdateReminder("missing", daily("", "x", "09:00")))
}

func TestRemoveReminderMovesTextToBacklog(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceReminders([]Reminder{
		{ID: "r2", Text: "Buy milk", Date: "2025-04-30", Time: "09:00", RecurrenceType: recurrence.Once},
	})
	s.AddCompletion("r2")

	require.True(t, s.RemoveReminder("r2"))
	assert.Empty(t, s.Reminders())
	_, ok := s.LastCompletion("r2")
	assert.False(t, ok)
	assert.Equal(t, []BacklogEntry{{Text: "Buy milk"}}, s.Backlog())

	_, err := s.AddReminder(Reminder{ID: "r2", Text: "Buy milk", Date: "2025-05-01", RecurrenceType: recurrence.Once})
	require.NoError(t, err)
	require.True(t, s.RemoveReminder("r2"))
	assert.Equal(t, []BacklogEntry{{Text: "Buy milk"}}, s.Backlog())

	assert.False(t, s.RemoveReminder("r2"))
}

func TestBacklogDedupeAndSuggestions(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	assert.True(t, s.AddToBacklog("Buy milk"))
	assert.False(t, s.AddToBacklog("  buy MILK "))
	assert.False(t, s.AddToBacklog("   "))
	assert.True(t, s.AddToBacklog("Buy bread"))
	assert.True(t, s.AddToBacklog("Call mom"))

	assert.Equal(t, []string{"Buy bread", "Buy milk"}, s.Suggestions("bu", 0))
	assert.Equal(t, []string{"Buy bread"}, s.Suggestions("BU", 1))
	assert.Equal(t, []string{"Call mom", "Buy bread", "Buy milk"}, s.Suggestions("", 0))
	assert.Empty(t, s.Suggestions("xyz", 0))

	s.ClearBacklog()
	assert.Empty(t, s.Backlog())
}

func TestReconcileDropsOrphans(t *testing.T) {
	backend := storage.NewMemory()
	backend.Put("reminders", []byte(`[{"id":"a","text":"Stretch","time":"08:00","recurrence_type":"daily","recurring":true}]`))
	backend.Put("completed", []byte(`[
		{"id":"a","completed_at":"2025-04-30T08:00:00.000000"},
		{"id":"gone","completed_at":"2025-04-29T08:00:00.000000"}
	]`))

	s, logs := newTestStore(t, backend)
	assert.Equal(t, []Completion{{ID: "a", CompletedAt: "2025-04-30T08:00:00.000000"}}, s.Completions())
	assert.Contains(t, logs.String(), "dropped 1 stale records")
	assert.Equal(t, 1, backend.Saves("completed"))

	assert.Equal(t, 0, s.Reconcile())
	assert.Equal(t, 1, backend.Saves("completed"), "a no-op reconcile must not save")
}

func TestReconcileIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceReminders([]Reminder{daily("a", "Stretch", "08:00")})
	s.ReplaceCompletions([]Completion{
		{ID: "a", CompletedAt: "2025-04-30T08:00:00.000000"},
		{ID: "b", CompletedAt: "2025-04-30T08:00:00.000000"},
		{ID: "c", CompletedAt: "garbage"},
	})

	assert.Equal(t, 2, s.Reconcile())
	once := s.Completions()
	assert.Equal(t, 0, s.Reconcile())
	assert.Equal(t, once, s.Completions())
}

func TestReconcileWithNoReminders(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceCompletions([]Completion{{ID: "x", CompletedAt: "2025-04-30T08:00:00.000000"}})

	assert.Equal(t, 1, s.Reconcile())
	assert.Empty(t, s.Completions())
}

func TestLoadDedupesCompletions(t *testing.T) {
	backend := storage.NewMemory()
	backend.Put("reminders", []byte(`[
		{"id":"a","text":"A","time":"08:00","recurrence_type":"daily"},
		{"id":"b","text":"B","time":"08:00","recurrence_type":"daily"}
	]`))
	backend.Put("completed", []byte(`[
		{"id":"a","completed_at":"2025-04-28T08:00:00.000000"},
		{"id":"b","completed_at":"not a time"},
		{"id":"a","completed_at":"2025-04-30T08:00:00.000000"},
		{"id":"a","completed_at":"2025-04-29T08:00:00.000000"},
		{"id":"b","completed_at":"2025-04-27T08:00:00.000000"}
	]`))

	s, _ := newTestStore(t, backend)
	assert.Equal(t, []Completion{
		{ID: "a", CompletedAt: "2025-04-30T08:00:00.000000"},
		{ID: "b", CompletedAt: "2025-04-27T08:00:00.000000"},
	}, s.Completions())
	assert.True(t, s.IsDirty(CollectionCompleted))

	require.NoError(t, s.Flush())
	assert.False(t, s.IsDirty(CollectionCompleted))

	var saved []Completion
	data, err := backend.Load("completed")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Len(t, saved, 2)
}

func TestCorruptDocumentsStartEmpty(t *testing.T) {
	backend := storage.NewMemory()
	backend.Put("reminders", []byte(`{not json`))
	backend.Put("backlog", []byte(`[{"text":"ok"}, 42, {"text":"also ok"}]`))
	backend.Put("config_dynamic", []byte(`{"settings_dialog": "broken", "notify_list_dialog": {"window_pos": {"x": 3, "y": 4}}}`))

	s, logs := newTestStore(t, backend)
	assert.Empty(t, s.Reminders())
	assert.Equal(t, []BacklogEntry{{Text: "ok"}, {Text: "also ok"}}, s.Backlog())

	settings := s.Settings()
	assert.Equal(t, DefaultCheckInterval, settings.CheckInterval())
	pos, ok := settings.WindowPos(SurfaceNotifyList)
	require.True(t, ok)
	assert.Equal(t, WindowPos{X: 3, Y: 4}, pos)

	assert.Contains(t, logs.String(), "failed to parse reminders")
	assert.Contains(t, logs.String(), "skipping backlog item 1")
}

func TestFailedSaveKeepsCacheAndFlushRetries(t *testing.T) {
	backend := storage.NewMemory()
	s, logs := newTestStore(t, backend)

	var notified int
	s.OnReminders(func([]Reminder) { notified++ })

	backend.FailSaves("reminders", true)
	_, err := s.AddReminder(daily("a", "Stretch", "08:00"))
	require.NoError(t, err)

	assert.Len(t, s.Reminders(), 1, "cache keeps the write")
	assert.True(t, s.IsDirty(CollectionReminders))
	assert.Equal(t, 1, notified)
	assert.Contains(t, logs.String(), "[store] Error: failed to save reminders")

	assert.Error(t, s.Flush())
	assert.True(t, s.IsDirty(CollectionReminders))

	backend.FailSaves("reminders", false)
	require.NoError(t, s.Flush())
	assert.False(t, s.IsDirty(CollectionReminders))

	data, err := backend.Load("reminders")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Stretch"`)
}

func TestRefreshReloadsFromBackend(t *testing.T) {
	backend := storage.NewMemory()
	s, _ := newTestStore(t, backend)
	s.AddToBacklog("old")

	var got []BacklogEntry
	s.Subscribe(CollectionBacklog, func(ev Event) { got = ev.Value.([]BacklogEntry) })

	backend.Put("backlog", []byte(`[{"text":"from disk"}]`))
	require.NoError(t, s.Refresh(CollectionBacklog))
	assert.Equal(t, []BacklogEntry{{Text: "from disk"}}, s.Backlog())
	assert.Equal(t, []BacklogEntry{{Text: "from disk"}}, got)

	assert.ErrorIs(t, s.Refresh("bogus"), ErrUnknownCollection)
}

func TestSavedDocumentFormat(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewFiles(dir, map[string]string{"config_dynamic": "config_dynamic.json"})
	require.NoError(t, err)

	s, _ := newTestStore(t, files)
	s.AddToBacklog("Café <b>")

	data, err := files.Load("backlog")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Café <b>")
	assert.Contains(t, string(data), "\n    {")
	assert.FileExists(t, filepath.Join(dir, "backlog.json"))
}

func TestSettingsUpdates(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	var seen []time.Duration
	s.OnSettings(func(st Settings) { seen = append(seen, st.CheckInterval()) })

	out := s.UpdateSettings(func(st Settings) Settings { return st.WithCheckInterval(2 * time.Second) })
	assert.Equal(t, MinCheckInterval, out.CheckInterval())

	s.UpdateSettings(func(st Settings) Settings { return st.WithCheckInterval(90 * time.Second) })
	assert.Equal(t, 90*time.Second, s.Settings().CheckInterval())
	assert.Equal(t, []time.Duration{MinCheckInterval, 90 * time.Second}, seen)

	s.ReplaceSettings(s.Settings().WithAutostart(true))
	assert.True(t, s.Settings().Autostart())
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	var order []string
	s.OnReminders(func([]Reminder) { order = append(order, "first") })
	id := s.OnReminders(func([]Reminder) { order = append(order, "second") })
	s.OnReminders(func([]Reminder) { order = append(order, "third") })

	s.ReplaceReminders(nil)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	assert.True(t, s.Unsubscribe(CollectionReminders, id))
	assert.False(t, s.Unsubscribe(CollectionReminders, id))
	order = nil
	s.ReplaceReminders(nil)
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestListenerPanicIsIsolated(t *testing.T) {
	s, logs := newTestStore(t, storage.NewMemory())

	var calls int
	s.OnReminders(func([]Reminder) { panic("boom") })
	s.OnReminders(func([]Reminder) { calls++ })

	assert.NotPanics(t, func() { s.ReplaceReminders([]Reminder{daily("a", "A", "08:00")}) })
	assert.Equal(t, 1, calls)
	assert.Contains(t, logs.String(), "panicked: boom")
	assert.Len(t, s.Reminders(), 1)
}

func TestListenerReceivesPrivateCopy(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.OnReminders(func(rs []Reminder) {
		if len(rs) > 0 {
			rs[0].Text = "mutated"
		}
	})
	var seen string
	s.OnReminders(func(rs []Reminder) { seen = rs[0].Text })

	s.ReplaceReminders([]Reminder{daily("a", "A", "08:00")})
	assert.Equal(t, "A", seen)
	r, _ := s.Reminder("a")
	assert.Equal(t, "A", r.Text)
}

func TestListenerMayReenterStore(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	var readBack []Reminder
	s.OnReminders(func([]Reminder) {
		readBack = s.Reminders()
		// A write from inside a listener must not deadlock.
		s.AddToBacklog("seen reminders change")
	})
	var backlogEvents int
	s.Subscribe(CollectionBacklog, func(Event) { backlogEvents++ })

	done := make(chan struct{})
	go func() {
		s.ReplaceReminders([]Reminder{daily("a", "A", "08:00")})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reentrant write deadlocked")
	}

	assert.Len(t, readBack, 1)
	assert.Equal(t, 1, backlogEvents)
	assert.Equal(t, []BacklogEntry{{Text: "seen reminders change"}}, s.Backlog())
}

func TestEventsFollowCommitOrder(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())
	s.ReplaceReminders([]Reminder{daily("a", "Buy milk", "08:00")})
	s.AddCompletion("a")

	var got []Collection
	for _, c := range Collections {
		s.Subscribe(c, func(ev Event) { got = append(got, ev.Collection) })
	}
	s.RemoveReminder("a")
	assert.Equal(t, []Collection{CollectionReminders, CollectionCompleted, CollectionBacklog}, got)
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemory())

	var mu sync.Mutex
	events := 0
	s.OnCompletions(func([]Completion) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strings.Repeat("x", i+1)
			for j := 0; j < 25; j++ {
				_, _ = s.AddReminder(daily(id+"-"+string(rune('a'+j)), "task", "08:00"))
				s.AddCompletion(id)
				_ = s.Reminders()
				_ = s.Due(fixedNow)
				s.Suggestions("t", 3)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Reminders(), 8*25)
	assert.Len(t, s.Completions(), 8)
	mu.Lock()
	assert.Equal(t, 8*25, events)
	mu.Unlock()
}

func TestUnreadableRemindersKeepCompletions(t *testing.T) {
	backend := storage.NewMemory()
	backend.Put("reminders", []byte(`[{"id":"a","text":"Stretch","ti`))
	backend.Put("completed", []byte(`[{"id":"a","completed_at":"2025-04-30T08:00:00.000000"}]`))

	s, logs := newTestStore(t, backend)
	assert.Empty(t, s.Reminders())
	assert.Equal(t, []Completion{{ID: "a", CompletedAt: "2025-04-30T08:00:00.000000"}}, s.Completions())
	assert.Equal(t, 0, backend.Saves("completed"))
	assert.Contains(t, logs.String(), "skipping completion reconcile")

	data, err := backend.Load("completed")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a"`)
}

func TestMissingRemindersStillReconcile(t *testing.T) {
	backend := storage.NewMemory()
	backend.Put("completed", []byte(`[{"id":"a","completed_at":"2025-04-30T08:00:00.000000"}]`))

	s, _ := newTestStore(t, backend)
	assert.Empty(t, s.Completions())
	assert.Equal(t, 1, backend.Saves("completed"))
}

func TestSyncPicksUpOtherWriters(t *testing.T) {
	dir := t.TempDir()
	open := func() *Store {
		files, err := storage.NewFiles(dir, nil)
		require.NoError(t, err)
		s, _ := newTestStore(t, files)
		return s
	}
	daemon, cli := open(), open()

	var seen [][]Reminder
	daemon.OnReminders(func(rs []Reminder) { seen = append(seen, rs) })

	_, err := cli.AddReminder(daily("r1", "Stretch", "08:00"))
	require.NoError(t, err)
	cli.AddCompletion("r1")

	assert.ElementsMatch(t, []Collection{CollectionReminders, CollectionCompleted}, daemon.Sync())
	r, ok := daemon.Reminder("r1")
	require.True(t, ok)
	assert.Equal(t, "Stretch", r.Text)
	_, ok = daemon.LastCompletion("r1")
	assert.True(t, ok)
	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 1)

	assert.Empty(t, daemon.Sync(), "nothing changed since the last sync")
}

func TestSharedStoreDoesNotLoseWrites(t *testing.T) {
	dir := t.TempDir()
	open := func(opts ...Option) *Store {
		files, err := storage.NewFiles(dir, nil)
		require.NoError(t, err)
		return NewStore(files, append([]Option{WithLogger(log.New(&bytes.Buffer{}, "", 0))}, opts...)...)
	}
	server := open(WithSharedBackend())
	cli := open()

	_, err := cli.AddReminder(daily("r1", "One", "08:00"))
	require.NoError(t, err)
	_, err = cli.AddReminder(daily("r2", "Two", "08:00"))
	require.NoError(t, err)

	// server has not read since r1 and r2 were written.
	_, err = server.AddReminder(daily("r3", "Three", "08:00"))
	require.NoError(t, err)

	var onDisk []Reminder
	data, err := os.ReadFile(filepath.Join(dir, "reminders.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	ids := make([]string, len(onDisk))
	for i, r := range onDisk {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)
}

func TestSyncKeepsUnsavedChanges(t *testing.T) {
	backend := storage.NewMemory()
	a, _ := newTestStore(t, backend)
	b, _ := newTestStore(t, backend)

	backend.FailSaves("backlog", true)
	a.AddToBacklog("local only")
	backend.FailSaves("backlog", false)
	b.AddToBacklog("from b")

	a.Sync()
	assert.Equal(t, []BacklogEntry{{Text: "local only"}}, a.Backlog())

	require.NoError(t, a.Flush())
	data, err := backend.Load("backlog")
	require.NoError(t, err)
	assert.Contains(t, string(data), "local only")
}
