package reminder

import "runtime/debug"

// Event carries the new value of a collection after a change. Value holds
// a private copy: []Reminder, []BacklogEntry, []Completion or Settings.
type Event struct {
	Collection Collection
	Value      any
}

// Listener receives change events.
type Listener func(Event)

// SubscriptionID identifies a registered listener.
type SubscriptionID uint64

type subscription struct {
	id SubscriptionID
	fn Listener
}

// Subscribe registers fn for changes to c. Listeners of a collection are
// invoked in registration order.
func (s *Store) Subscribe(c Collection, fn Listener) SubscriptionID {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs[c] = append(s.subs[c], subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes the listener registered under id. It reports whether
// the listener was found.
func (s *Store) Unsubscribe(c Collection, id SubscriptionID) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	subs := s.subs[c]
	for i, sub := range subs {
		if sub.id == id {
			s.subs[c] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// enqueueLocked queues the current value of c for delivery. Called with
// s.mu held so events are queued in commit order.
func (s *Store) enqueueLocked(c Collection) {
	v, err := s.snapshotLocked(c)
	if err != nil {
		return
	}
	s.subMu.Lock()
	s.pending = append(s.pending, Event{Collection: c, Value: v})
	s.subMu.Unlock()
}

// dispatch delivers queued events. Only one goroutine drains the queue at
// a time; a write made by a listener queues its event behind the current
// one and returns, and the draining goroutine delivers it next.
func (s *Store) dispatch() {
	s.subMu.Lock()
	if s.dispatching {
		s.subMu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		subs := append([]subscription(nil), s.subs[ev.Collection]...)
		s.subMu.Unlock()

		for _, sub := range subs {
			s.deliver(sub, Event{Collection: ev.Collection, Value: cloneValue(ev.Value)})
		}

		s.subMu.Lock()
	}

	s.dispatching = false
	s.subMu.Unlock()
}

// deliver calls one listener, recovering a panic so the remaining
// listeners still run.
func (s *Store) deliver(sub subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[store] Error: listener %d for %s panicked: %v\n%s", sub.id, ev.Collection, r, debug.Stack())
		}
	}()
	sub.fn(ev)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []Reminder:
		return cloneReminders(t)
	case []BacklogEntry:
		return cloneBacklog(t)
	case []Completion:
		return cloneCompletions(t)
	case Settings:
		return t.Clone()
	}
	return v
}

// OnReminders subscribes fn to reminder changes.
func (s *Store) OnReminders(fn func([]Reminder)) SubscriptionID {
	return s.Subscribe(CollectionReminders, func(ev Event) { fn(ev.Value.([]Reminder)) })
}

// OnCompletions subscribes fn to completion changes.
func (s *Store) OnCompletions(fn func([]Completion)) SubscriptionID {
	return s.Subscribe(CollectionCompleted, func(ev Event) { fn(ev.Value.([]Completion)) })
}

// OnSettings subscribes fn to settings changes.
func (s *Store) OnSettings(fn func(Settings)) SubscriptionID {
	return s.Subscribe(CollectionSettings, func(ev Event) { fn(ev.Value.(Settings)) })
}
