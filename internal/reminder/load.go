package reminder

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/notexe/remindd/internal/storage"
)

// stampSlack is how old a backend stamp must be before an unchanged stamp
// is taken to mean an unchanged document. Two writes inside the stamp
// resolution of the backend can share a stamp.
const stampSlack = 2 * time.Second

// loadLocked replaces the cached copy of c with the backend document.
// Missing documents start empty; unreadable ones are logged and start
// empty. Array items that do not decode are skipped one by one.
//
// The returned error reports a document that exists but could not be read
// or parsed as a whole.
func (s *Store) loadLocked(c Collection) error {
	stamp := s.stampLocked(c)
	data, err := s.backend.Load(string(c))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("[store] Error: failed to load %s: %v", c, err)
		s.decodeLocked(c, nil)
		s.raw[c], s.stamps[c] = nil, time.Time{}
		return err
	}
	parseErr := s.decodeLocked(c, data)
	s.raw[c], s.stamps[c] = data, stamp
	return parseErr
}

// syncLocked reloads c when the backend copy differs from the one this
// store last read or wrote, and reports whether it did. A collection with
// unsaved changes keeps its cache until Flush.
func (s *Store) syncLocked(c Collection) bool {
	if s.dirty[c] {
		return false
	}
	stamp := s.stampLocked(c)
	if prev := s.stamps[c]; !stamp.IsZero() && stamp.Equal(prev) && time.Since(stamp) > stampSlack {
		return false
	}

	data, err := s.backend.Load(string(c))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		data = nil
	case err != nil:
		s.logger.Printf("[store] Error: failed to reload %s: %v", c, err)
		return false
	}
	s.stamps[c] = stamp
	if bytes.Equal(data, s.raw[c]) {
		return false
	}
	s.decodeLocked(c, data)
	s.raw[c] = data
	return true
}

// syncAllLocked syncs every collection and queues an event for each one
// that changed.
func (s *Store) syncAllLocked() []Collection {
	var changed []Collection
	for _, c := range Collections {
		if s.syncLocked(c) {
			changed = append(changed, c)
			s.enqueueLocked(c)
		}
	}
	return changed
}

// stampLocked returns the backend's write time for c, or zero when the
// backend keeps none.
func (s *Store) stampLocked(c Collection) time.Time {
	st, ok := s.backend.(storage.Stamper)
	if !ok {
		return time.Time{}
	}
	ts, err := st.UpdatedAt(string(c))
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (s *Store) decodeLocked(c Collection, data []byte) error {
	s.dirty[c] = false

	var err error
	switch c {
	case CollectionReminders:
		s.reminders, err = decodeItems[Reminder](s, c, data)
	case CollectionBacklog:
		s.backlog, err = decodeItems[BacklogEntry](s, c, data)
	case CollectionCompleted:
		var loaded []Completion
		loaded, err = decodeItems[Completion](s, c, data)
		s.completed = dedupeCompletions(loaded)
		if len(s.completed) != len(loaded) {
			s.logger.Printf("[store] Dropped %d duplicate completion records", len(loaded)-len(s.completed))
			s.dirty[c] = true
		}
	case CollectionSettings:
		var settings Settings
		settings, err = decodeSettings(s, data)
		s.settings = mergeDefaults(settings)
	}
	return err
}

// decodeSettings reads each surface on its own so one malformed entry
// does not reset the others.
func decodeSettings(s *Store, data []byte) (Settings, error) {
	settings := Settings{}
	if len(data) == 0 {
		return settings, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Printf("[store] Error: failed to parse %s: %v", CollectionSettings, err)
		return settings, err
	}
	for name, item := range raw {
		var v SurfaceSettings
		if err := json.Unmarshal(item, &v); err != nil {
			s.logger.Printf("[store] Error: skipping %s entry %q: %v", CollectionSettings, name, err)
			continue
		}
		settings[name] = v
	}
	return settings, nil
}

func decodeItems[T any](s *Store, c Collection, data []byte) ([]T, error) {
	out := []T{}
	if len(data) == 0 {
		return out, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Printf("[store] Error: failed to parse %s: %v", c, err)
		return out, err
	}
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			s.logger.Printf("[store] Error: skipping %s item %d: %v", c, i, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
