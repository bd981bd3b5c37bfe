package openweather

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

// CachedForecaster wraps a ForecastSource and reuses the last forecast for up
// to ttl. The service watches a single site, so one entry is kept; a request
// for other coordinates replaces it.
type CachedForecaster struct {
	inner   domain.ForecastSource
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu        sync.Mutex
	at        domain.Coordinates
	forecast  domain.Forecast
	expiresAt time.Time
}

// NewCachedForecaster creates a cache decorator around a forecast source.
func NewCachedForecaster(inner domain.ForecastSource, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedForecaster {
	return &CachedForecaster{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedForecaster) Forecast(ctx context.Context, at domain.Coordinates) (domain.Forecast, error) {
	now := c.clock.Now()
	if f, ok := c.lookup(at, now); ok {
		c.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return f, nil
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	f, err := c.inner.Forecast(ctx, at)
	if err != nil {
		return f, err
	}
	// Empty forecasts are not cached so the next cycle retries.
	if len(f.Periods) > 0 {
		c.mu.Lock()
		c.at, c.forecast, c.expiresAt = at, f, now.Add(c.ttl)
		c.mu.Unlock()
	}
	return f, nil
}

func (c *CachedForecaster) lookup(at domain.Coordinates, now time.Time) (domain.Forecast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiresAt.IsZero() || c.at != at || !now.Before(c.expiresAt) {
		return domain.Forecast{}, false
	}
	return c.forecast, true
}
