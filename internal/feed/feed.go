// Package feed holds the presentation state served to dashboards: the merged
// alert list, the navbar badge and recent notifications.
package feed

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
)

// DefaultNotificationDuration is how long a notification without an explicit
// duration stays active.
const DefaultNotificationDuration = 6 * time.Second

type shownNotification struct {
	domain.Notification
	shownAt time.Time
}

func (s shownNotification) expiresAt() time.Time {
	d := s.Duration
	if d <= 0 {
		d = DefaultNotificationDuration
	}
	return s.shownAt.Add(d)
}

// Feed is safe for concurrent use. It implements domain.Notifier.
type Feed struct {
	pageSize int
	history  int
	clock    clockwork.Clock

	mu     sync.RWMutex
	alerts []domain.AlertRecord
	ids    domain.IDSet
	ready  bool
	recent []domain.AlertRecord
	notes  []shownNotification // oldest first
}

// New creates an empty feed paginating at pageSize and keeping the newest
// history notifications.
func New(pageSize, history int, clock clockwork.Clock) *Feed {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Feed{
		pageSize: pageSize,
		history:  history,
		clock:    clock,
		ids:      domain.IDSet{},
	}
}

// Publish replaces the alert list. The first call marks the feed ready.
func (f *Feed) Publish(alerts []domain.AlertRecord) {
	list := slices.Clone(alerts)
	ids := domain.IDsOf(list)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = list
	f.ids = ids
	f.ready = true
}

// Alerts returns a copy of the current list.
func (f *Feed) Alerts() []domain.AlertRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.alerts)
}

// Contains reports whether an alert with id is currently displayed.
func (f *Feed) Contains(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ids.Has(id)
}

// Ready reports whether a list has been published.
func (f *Feed) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ready
}

// Page returns page n of the current list.
func (f *Feed) Page(n int) domain.Page {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.Paginate(f.alerts, n, f.pageSize)
}

// SetRecent replaces the badge list.
func (f *Feed) SetRecent(alerts []domain.AlertRecord) {
	list := slices.Clone(alerts)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = list
}

// Recent returns the badge list.
func (f *Feed) Recent() []domain.AlertRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.recent)
}

// Notify records n as shown now. It never fails.
func (f *Feed) Notify(_ context.Context, n domain.Notification) error {
	shown := shownNotification{Notification: n, shownAt: f.clock.Now()}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, shown)
	if over := len(f.notes) - f.history; over > 0 {
		f.notes = slices.Delete(f.notes, 0, over)
	}
	return nil
}

// Active returns notifications that have not yet auto-hidden, newest first.
func (f *Feed) Active() []domain.Notification {
	now := f.clock.Now()
	return f.collect(func(s shownNotification) bool {
		return now.Before(s.expiresAt())
	})
}

// History returns every retained notification, newest first.
func (f *Feed) History() []domain.Notification {
	return f.collect(func(shownNotification) bool { return true })
}

func (f *Feed) collect(keep func(shownNotification) bool) []domain.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.Notification, 0, len(f.notes))
	for i := len(f.notes) - 1; i >= 0; i-- {
		if keep(f.notes[i]) {
			out = append(out, f.notes[i].Notification)
		}
	}
	return out
}
