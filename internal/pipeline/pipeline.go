package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

// AlertStore is the persistent alert collection.
type AlertStore interface {
	ListAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error)
	LatestAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error)
	InsertAlert(ctx context.Context, alert domain.AlertRecord) error
}

// AlertPublisher announces newly stored alerts to downstream consumers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.AlertRecord) error
}

// Evaluator produces candidate alerts. Implementations never fail; an
// unavailable source yields no candidates.
type Evaluator interface {
	Evaluate(ctx context.Context) []domain.Candidate
}

// FeedPublisher receives the merged alert list after each cycle.
type FeedPublisher interface {
	Publish(alerts []domain.AlertRecord)
	Contains(id string) bool
}

// Refresher runs the evaluate, dedupe, persist and merge cycle.
type Refresher struct {
	store     AlertStore
	evaluator Evaluator
	feed      FeedPublisher
	notifier  domain.Notifier
	publisher AlertPublisher
	listLimit int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	once  sync.Once
	ready atomic.Bool
}

// RefresherOptions configures a Refresher. Notifier and Publisher are optional.
type RefresherOptions struct {
	Store     AlertStore
	Evaluator Evaluator
	Feed      FeedPublisher
	Notifier  domain.Notifier
	Publisher AlertPublisher
	ListLimit int
	Clock     clockwork.Clock
}

// NewRefresher creates a Refresher.
func NewRefresher(opts RefresherOptions, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Refresher{
		store:     opts.Store,
		evaluator: opts.Evaluator,
		feed:      opts.Feed,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		listLimit: opts.ListLimit,
		clock:     opts.Clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a refresh cycle has published the feed.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("alert feed has not been loaded yet")
	}
	return nil
}

// RunOnce performs the startup refresh. Later calls are no-ops.
func (r *Refresher) RunOnce(ctx context.Context) {
	r.once.Do(func() {
		if _, err := r.Refresh(ctx); err != nil {
			r.logger.Warn("initial refresh aborted", "error", err)
		}
	})
}

// Run performs the startup refresh and, when interval is positive, repeats
// the cycle on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	r.RunOnce(ctx)
	if interval <= 0 {
		return nil
	}

	r.logger.Info("periodic refresh started", "interval", interval)
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("periodic refresh stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("refresh failed", "error", err)
			}
		}
	}
}

// Refresh runs one cycle and returns the merged list, newest first. Store and
// forecast failures degrade to empty inputs; the only error is cancellation.
func (r *Refresher) Refresh(ctx context.Context) ([]domain.AlertRecord, error) {
	start := r.clock.Now()

	var (
		stored     []domain.AlertRecord
		candidates []domain.Candidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stored = r.listStored(gctx)
		return nil
	})
	g.Go(func() error {
		candidates = r.evaluator.Evaluate(gctx)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inserted := r.insertNew(ctx, stored, candidates)
	r.publish(ctx, inserted)

	merged := domain.MergeAlerts(stored, domain.CandidateAlerts(candidates))
	domain.SortNewestFirst(merged)

	r.notify(ctx, candidates)
	r.feed.Publish(merged)
	r.ready.Store(true)

	r.metrics.RefreshCycles.Inc()
	r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	r.metrics.FeedSize.Set(float64(len(merged)))
	r.logger.Info("alerts refreshed",
		"stored", len(stored),
		"candidates", len(candidates),
		"inserted", len(inserted),
		"total", len(merged),
	)
	return merged, nil
}

func (r *Refresher) listStored(ctx context.Context) []domain.AlertRecord {
	alerts, err := r.store.ListAlerts(ctx, r.listLimit)
	if err != nil {
		r.logger.Error("list stored alerts failed, continuing with none", "error", err)
		r.metrics.StoreReadErrors.Inc()
		return nil
	}
	return alerts
}

// insertNew writes each candidate whose id is not already stored. Each id is
// attempted at most once and failures are not retried.
func (r *Refresher) insertNew(ctx context.Context, stored []domain.AlertRecord, candidates []domain.Candidate) []domain.AlertRecord {
	seen := domain.IDsOf(stored)
	var inserted []domain.AlertRecord
	for _, c := range candidates {
		id := c.Alert.ID
		if seen.Has(id) {
			continue
		}
		seen[id] = struct{}{}

		if err := r.store.InsertAlert(ctx, c.Alert); err != nil {
			r.logger.Error("save alert failed", "error", err, "alert_id", id)
			r.metrics.InsertErrors.Inc()
			continue
		}
		r.metrics.AlertsInserted.Inc()
		inserted = append(inserted, c.Alert)
	}
	return inserted
}

func (r *Refresher) publish(ctx context.Context, alerts []domain.AlertRecord) {
	if r.publisher == nil || len(alerts) == 0 {
		return
	}
	if err := r.publisher.PublishAlerts(ctx, alerts); err != nil {
		r.logger.Error("publish alerts failed", "error", err, "count", len(alerts))
		r.metrics.PublishErrors.Inc()
		return
	}
	r.metrics.AlertsPublished.Add(float64(len(alerts)))
}

// notify raises a notification for each notifying candidate that the feed
// is not already showing.
func (r *Refresher) notify(ctx context.Context, candidates []domain.Candidate) {
	if r.notifier == nil {
		return
	}
	sent := domain.IDSet{}
	for _, c := range candidates {
		id := c.Alert.ID
		if !c.Notify || sent.Has(id) || r.feed.Contains(id) {
			continue
		}
		sent[id] = struct{}{}

		n := domain.NotificationFor(c)
		if err := r.notifier.Notify(ctx, n); err != nil {
			r.logger.Warn("notification delivery failed", "error", err, "alert_id", id)
		}
		r.metrics.NotificationsSent.WithLabelValues(string(n.Severity)).Inc()
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
