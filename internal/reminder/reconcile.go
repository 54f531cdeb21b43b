package reminder

import (
	"time"

	"github.com/notexe/remindd/internal/recurrence"
)

// Reconcile drops completion records whose reminder no longer exists and
// returns how many were dropped. When anything changes the completion
// collection is saved and its listeners notified.
func (s *Store) Reconcile() int {
	dropped := 0
	s.write(func() {
		ids := make(map[string]struct{}, len(s.reminders))
		for _, r := range s.reminders {
			if r.ID != "" {
				ids[r.ID] = struct{}{}
			}
		}

		kept := make([]Completion, 0, len(s.completed))
		for _, c := range s.completed {
			if _, ok := ids[c.ID]; ok {
				kept = append(kept, c)
			}
		}
		dropped = len(s.completed) - len(kept)
		if dropped == 0 {
			return
		}
		s.completed = kept
		s.commitLocked(CollectionCompleted)
	})
	if dropped > 0 {
		s.logger.Printf("[store] Reconciled completions: dropped %d stale records", dropped)
	}
	return dropped
}

// dedupeCompletions keeps one record per id: the one with the latest
// parseable timestamp, or the last one in file order when none parse.
// Records keep the position of the first occurrence of their id.
func dedupeCompletions(in []Completion) []Completion {
	out := make([]Completion, 0, len(in))
	index := make(map[string]int, len(in))
	for _, c := range in {
		i, seen := index[c.ID]
		if !seen {
			index[c.ID] = len(out)
			out = append(out, c)
			continue
		}
		if newer(c.CompletedAt, out[i].CompletedAt) {
			out[i] = c
		}
	}
	return out
}

// newer reports whether timestamp a should win over b. A parseable
// timestamp beats an unparseable one; ties go to a, the later record.
func newer(a, b string) bool {
	ta, errA := recurrence.ParseTimestampIn(a, time.Local)
	tb, errB := recurrence.ParseTimestampIn(b, time.Local)
	switch {
	case errA != nil && errB != nil:
		return true
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return !ta.Before(tb)
}
