package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/notexe/remindd/internal/reminder"
)

// Options configures a Scheduler.
type Options struct {
	// RenotifyAfter is how long a reminder that stays due waits before it
	// is sent again. Zero sends it on every tick.
	RenotifyAfter time.Duration
	// Now is the clock; time.Now when nil.
	Now    func() time.Time
	Logger *log.Logger
}

// Scheduler polls the store for due reminders and hands them to a notifier.
type Scheduler struct {
	store    *reminder.Store
	notifier Notifier
	opts     Options
	logger   *log.Logger

	mu       sync.Mutex
	notified map[string]time.Time
}

// New creates a Scheduler over store.
func New(store *reminder.Store, notifier Notifier, opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		notified: make(map[string]time.Time),
	}
}

// Run ticks immediately, then on the interval from the settings document.
// A change to the interval takes effect without a restart. It exits when
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.notifier == nil {
		return errors.New("scheduler has no notifier")
	}
	interval := s.store.Settings().CheckInterval()

	changed := make(chan time.Duration, 1)
	sub := s.store.OnSettings(func(st reminder.Settings) {
		d := st.CheckInterval()
		select {
		case changed <- d:
		default:
			// Replace a pending value nobody has read yet.
			select {
			case <-changed:
			default:
			}
			changed <- d
		}
	})
	defer s.store.Unsubscribe(reminder.CollectionSettings, sub)

	s.logger.Printf("[scheduler] Started. Interval: %s", interval)

	// Run immediately on start
	s.Tick(ctx, s.opts.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("[scheduler] Shutting down...")
			return nil
		case d := <-changed:
			if d != interval {
				interval = d
				ticker.Reset(interval)
				s.logger.Printf("[scheduler] Interval changed: %s", interval)
			}
		case <-ticker.C:
			s.Tick(ctx, s.opts.Now())
		}
	}
}

// Tick picks up changes other processes wrote to the store, checks the
// reminders due at now and notifies the ones not sent recently. It returns
// how many reminders were handed to the notifier.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.store.Sync()
	due := s.store.Due(now)

	s.mu.Lock()
	dueIDs := make(map[string]struct{}, len(due))
	var fresh []reminder.Reminder
	for _, r := range due {
		dueIDs[r.ID] = struct{}{}
		if last, ok := s.notified[r.ID]; ok && s.opts.RenotifyAfter > 0 && now.Sub(last) < s.opts.RenotifyAfter {
			continue
		}
		fresh = append(fresh, r)
	}
	// Forget reminders that are no longer due so their next period fires.
	for id := range s.notified {
		if _, ok := dueIDs[id]; !ok {
			delete(s.notified, id)
		}
	}
	s.mu.Unlock()

	if len(fresh) == 0 {
		return 0
	}

	s.logger.Printf("[scheduler] %d reminder(s) due, notifying...", len(fresh))
	if err := s.notifier.Notify(ctx, fresh); err != nil {
		s.logger.Printf("[scheduler] Error: notify failed: %v", err)
		return 0
	}

	s.mu.Lock()
	for _, r := range fresh {
		s.notified[r.ID] = now
	}
	s.mu.Unlock()
	return len(fresh)
}
