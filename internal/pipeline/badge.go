package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

// minBadgeRetry is the first retry delay after a failed badge poll.
const minBadgeRetry = time.Second

// BadgeSink receives the latest alerts for the navbar badge.
type BadgeSink interface {
	SetRecent(alerts []domain.AlertRecord)
}

// BadgePoller keeps the badge list current. It only reads the store.
type BadgePoller struct {
	store    AlertStore
	sink     BadgeSink
	limit    int
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewBadgePoller creates a poller fetching limit alerts every interval.
func NewBadgePoller(store AlertStore, sink BadgeSink, limit int, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *BadgePoller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BadgePoller{
		store:    store,
		sink:     sink,
		limit:    limit,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run polls immediately and then every interval until ctx is cancelled. After
// a failure the previous badge stays in place and the poll is retried with
// exponential backoff capped at the interval.
func (b *BadgePoller) Run(ctx context.Context) error {
	b.logger.Info("badge poller started", "interval", b.interval, "limit", b.limit)
	retry := minBadgeRetry

	for {
		wait := b.interval
		if !b.Poll(ctx) {
			if ctx.Err() != nil {
				return nil
			}
			wait = min(retry, b.interval)
			retry = nextBackoff(retry, b.interval)
		} else {
			retry = minBadgeRetry
		}

		if !sleepWithContext(ctx, b.clock, wait) {
			b.logger.Info("badge poller stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Poll fetches the latest alerts once and reports whether it succeeded.
func (b *BadgePoller) Poll(ctx context.Context) bool {
	alerts, err := b.store.LatestAlerts(ctx, b.limit)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Warn("fetch recent alerts failed", "error", err)
			b.metrics.BadgePolls.WithLabelValues("error").Inc()
		}
		return false
	}
	b.sink.SetRecent(alerts)
	b.metrics.BadgePolls.WithLabelValues("success").Inc()
	return true
}
