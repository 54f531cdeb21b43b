package reminder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/notexe/remindd/internal/recurrence"
	"github.com/notexe/remindd/internal/storage"
)

// Collection names one of the persisted documents owned by the Store.
type Collection string

const (
	CollectionReminders Collection = "reminders"
	CollectionBacklog   Collection = "backlog"
	CollectionCompleted Collection = "completed"
	CollectionSettings  Collection = "config_dynamic"
)

// Collections lists every collection in load order.
var Collections = []Collection{CollectionReminders, CollectionBacklog, CollectionCompleted, CollectionSettings}

var (
	ErrNotFound          = errors.New("reminder not found")
	ErrDuplicateID       = errors.New("reminder id already exists")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Store is the authoritative in-memory copy of the reminder collections,
// written through to a storage backend on every change.
//
// Reads return copies. Writes are serialized; each write saves the
// collection it touched and then notifies that collection's listeners in
// registration order. Listeners run without any store lock held and may
// call back into the Store, including writes.
//
// Several processes may share one backend. Sync picks up their writes; a
// shared store also syncs before every write so it never saves over rows
// it has not seen.
type Store struct {
	backend storage.Backend
	now     func() time.Time
	logger  *log.Logger
	shared  bool

	mu        sync.RWMutex
	reminders []Reminder
	backlog   []BacklogEntry
	completed []Completion
	settings  Settings
	dirty     map[Collection]bool
	// raw and stamps describe the backend copy last read or written.
	raw    map[Collection][]byte
	stamps map[Collection]time.Time

	subMu       sync.Mutex
	subs        map[Collection][]subscription
	nextSub     SubscriptionID
	pending     []Event
	dispatching bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for recovered faults.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithSharedBackend makes every write sync the store with the backend
// first. Use it when other processes write the same backend.
func WithSharedBackend() Option {
	return func(s *Store) { s.shared = true }
}

// NewStore loads every collection from backend and reconciles completion
// records. Missing or unreadable documents start empty. When the
// reminders document exists but cannot be read, completions are kept
// as they are.
func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		logger:  log.Default(),
		dirty:   make(map[Collection]bool),
		raw:     make(map[Collection][]byte),
		stamps:  make(map[Collection]time.Time),
		subs:    make(map[Collection][]subscription),
	}
	for _, opt := range opts {
		opt(s)
	}

	remindersLoaded := true
	s.mu.Lock()
	for _, c := range Collections {
		if err := s.loadLocked(c); err != nil && c == CollectionReminders {
			remindersLoaded = false
		}
	}
	s.mu.Unlock()

	if !remindersLoaded {
		s.logger.Println("[store] Warning: reminders did not load, skipping completion reconcile")
		return s
	}
	s.Reconcile()
	return s
}

// Get returns a copy of collection c: []Reminder, []BacklogEntry,
// []Completion or Settings.
func (s *Store) Get(c Collection) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(c)
}

// Reminders returns a copy of every reminder.
func (s *Store) Reminders() []Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneReminders(s.reminders)
}

// Reminder returns the reminder with id.
func (s *Store) Reminder(id string) (Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.reminders[i].Clone(), true
	}
	return Reminder{}, false
}

// Backlog returns a copy of the backlog.
func (s *Store) Backlog() []BacklogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBacklog(s.backlog)
}

// Completions returns a copy of the completion records.
func (s *Store) Completions() []Completion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCompletions(s.completed)
}

// Settings returns a copy of the dynamic settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// LastCompletion returns the completion timestamp recorded for id.
func (s *Store) LastCompletion(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.completed {
		if c.ID == id {
			return c.CompletedAt, true
		}
	}
	return "", false
}

// LatestCompletions maps reminder ids to their completion timestamps.
func (s *Store) LatestCompletions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.completed))
	for _, c := range s.completed {
		out[c.ID] = c.CompletedAt
	}
	return out
}

// ReplaceReminders overwrites the reminder collection.
func (s *Store) ReplaceReminders(reminders []Reminder) {
	s.write(func() {
		s.reminders = cloneReminders(reminders)
		s.commitLocked(CollectionReminders)
	})
}

// ReplaceBacklog overwrites the backlog.
func (s *Store) ReplaceBacklog(backlog []BacklogEntry) {
	s.write(func() {
		s.backlog = cloneBacklog(backlog)
		s.commitLocked(CollectionBacklog)
	})
}

// ReplaceCompletions overwrites the completion records.
func (s *Store) ReplaceCompletions(completed []Completion) {
	s.write(func() {
		s.completed = cloneCompletions(completed)
		s.commitLocked(CollectionCompleted)
	})
}

// ReplaceSettings overwrites the dynamic settings.
func (s *Store) ReplaceSettings(settings Settings) {
	s.write(func() {
		s.settings = settings.Clone()
		s.commitLocked(CollectionSettings)
	})
}

// UpdateSettings applies fn to the current settings and stores the result
// as one write.
func (s *Store) UpdateSettings(fn func(Settings) Settings) Settings {
	var out Settings
	s.write(func() {
		s.settings = fn(s.settings.Clone()).Clone()
		out = s.settings.Clone()
		s.commitLocked(CollectionSettings)
	})
	return out
}

// AddReminder appends r, assigning an id when it has none.
func (s *Store) AddReminder(r Reminder) (Reminder, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = NewID()
	}
	var err error
	s.write(func() {
		if s.indexLocked(r.ID) >= 0 {
			err = fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
			return
		}
		s.reminders = append(s.reminders, r.Clone())
		s.commitLocked(CollectionReminders)
	})
	if err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// UpdateReminder replaces the reminder with id and drops its completion
// record so the edited rule is evaluated fresh. It reports false when id
// is unknown.
func (s *Store) UpdateReminder(id string, r Reminder) bool {
	r = r.Clone()
	r.ID = id
	found := false
	s.write(func() {
		i := s.indexLocked(id)
		if i < 0 {
			return
		}
		found = true
		s.reminders[i] = r
		s.commitLocked(CollectionReminders)
		if s.removeCompletionLocked(id) {
			s.commitLocked(CollectionCompleted)
		}
	})
	return found
}

// RemoveReminder deletes the reminder with id, purges its completion
// records and keeps its text in the backlog. It reports false when id is
// unknown.
func (s *Store) RemoveReminder(id string) bool {
	found := false
	s.write(func() {
		i := s.indexLocked(id)
		if i < 0 {
			return
		}
		found = true
		removed := s.reminders[i]
		s.reminders = append(s.reminders[:i:i], s.reminders[i+1:]...)
		s.commitLocked(CollectionReminders)

		if s.removeCompletionLocked(id) {
			s.commitLocked(CollectionCompleted)
		}
		if s.addToBacklogLocked(removed.Text) {
			s.commitLocked(CollectionBacklog)
		}
	})
	return found
}

// AddCompletion records id as done now, replacing any earlier record.
func (s *Store) AddCompletion(id string) Completion {
	c := Completion{ID: id, CompletedAt: recurrence.FormatTimestamp(s.now())}
	s.write(func() {
		s.removeCompletionLocked(id)
		s.completed = append(s.completed, c)
		s.commitLocked(CollectionCompleted)
	})
	return c
}

// RemoveCompletion deletes every completion record for id. It reports
// whether anything was removed.
func (s *Store) RemoveCompletion(id string) bool {
	removed := false
	s.write(func() {
		if s.removeCompletionLocked(id) {
			removed = true
			s.commitLocked(CollectionCompleted)
		}
	})
	return removed
}

// AddToBacklog appends text unless it is blank or already present
// (case-insensitive). It reports whether the backlog changed.
func (s *Store) AddToBacklog(text string) bool {
	added := false
	s.write(func() {
		if s.addToBacklogLocked(text) {
			added = true
			s.commitLocked(CollectionBacklog)
		}
	})
	return added
}

// ClearBacklog removes every backlog entry.
func (s *Store) ClearBacklog() {
	s.ReplaceBacklog(nil)
}

// Suggestions returns backlog texts starting with prefix, ignoring case,
// most recent first. limit <= 0 returns every match.
func (s *Store) Suggestions(prefix string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	var out []string
	for i := len(s.backlog) - 1; i >= 0; i-- {
		text := s.backlog[i].Text
		if text == "" || !strings.HasPrefix(strings.ToLower(text), prefix) {
			continue
		}
		out = append(out, text)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// IsDirty reports whether the last save of c failed.
func (s *Store) IsDirty(c Collection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty[c]
}

// Flush retries saving every dirty collection.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, c := range Collections {
		if !s.dirty[c] {
			continue
		}
		if err := s.saveLocked(c); err != nil {
			errs = append(errs, err)
			continue
		}
		s.dirty[c] = false
	}
	return errors.Join(errs...)
}

// Refresh reloads c from the backend, discarding the cached copy, and
// notifies its listeners. It returns the error of a document that could
// not be read or parsed; the collection is then empty.
func (s *Store) Refresh(c Collection) error {
	if _, err := s.Get(c); err != nil {
		return err
	}
	var err error
	s.write(func() {
		err = s.loadLocked(c)
		s.enqueueLocked(c)
	})
	return err
}

// Sync reloads the collections that other writers changed in the backend
// since this store last read or wrote them, notifies their listeners and
// returns their names. Collections with unsaved changes are kept.
func (s *Store) Sync() []Collection {
	s.mu.Lock()
	changed := s.syncAllLocked()
	s.mu.Unlock()
	s.dispatch()
	return changed
}

// write runs fn under the exclusive lock, then delivers queued events.
func (s *Store) write(fn func()) {
	s.mu.Lock()
	if s.shared {
		s.syncAllLocked()
	}
	fn()
	s.mu.Unlock()
	s.dispatch()
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.reminders {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeCompletionLocked(id string) bool {
	kept := s.completed[:0:0]
	for _, c := range s.completed {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(s.completed) {
		return false
	}
	s.completed = kept
	return true
}

func (s *Store) addToBacklogLocked(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, e := range s.backlog {
		if strings.EqualFold(e.Text, text) {
			return false
		}
	}
	s.backlog = append(s.backlog, BacklogEntry{Text: text})
	return true
}

// commitLocked saves c and queues its change event. A failed save leaves
// the cache as it is and marks c dirty.
func (s *Store) commitLocked(c Collection) {
	if err := s.saveLocked(c); err != nil {
		s.logger.Printf("[store] Error: %v", err)
		s.dirty[c] = true
	} else {
		s.dirty[c] = false
	}
	s.enqueueLocked(c)
}

func (s *Store) saveLocked(c Collection) error {
	v, err := s.snapshotLocked(c)
	if err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c, err)
	}
	if err := s.backend.Save(string(c), data); err != nil {
		return fmt.Errorf("failed to save %s: %w", c, err)
	}
	s.raw[c], s.stamps[c] = data, time.Time{}
	return nil
}

func (s *Store) snapshotLocked(c Collection) (any, error) {
	switch c {
	case CollectionReminders:
		return cloneReminders(s.reminders), nil
	case CollectionBacklog:
		return cloneBacklog(s.backlog), nil
	case CollectionCompleted:
		return cloneCompletions(s.completed), nil
	case CollectionSettings:
		return s.settings.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
}

// encode renders v the way the documents are kept on disk: indented,
// UTF-8, no HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
