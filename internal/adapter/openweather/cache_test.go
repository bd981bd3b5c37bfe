package openweather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

type countingSource struct {
	calls    int
	forecast domain.Forecast
	err      error
}

func (m *countingSource) Forecast(_ context.Context, _ domain.Coordinates) (domain.Forecast, error) {
	m.calls++
	return m.forecast, m.err
}

func singlePeriod(temp float64) domain.Forecast {
	return domain.Forecast{Periods: []domain.ForecastPeriod{{Temperature: temp}}}
}

func newCached(inner domain.ForecastSource, ttl time.Duration) (*CachedForecaster, *clockwork.FakeClock, *observability.Metrics) {
	clock := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	return NewCachedForecaster(inner, ttl, clock, metrics), clock, metrics
}

func TestCachedForecaster_ReusesWithinTTL(t *testing.T) {
	inner := &countingSource{forecast: singlePeriod(20)}
	cached, clock, metrics := newCached(inner, 5*time.Minute)

	first, err := cached.Forecast(t.Context(), testCoords)
	require.NoError(t, err)
	clock.Advance(4 * time.Minute)
	second, err := cached.Forecast(t.Context(), testCoords)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ForecastCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ForecastCache.WithLabelValues("miss")), 0)
}

func TestCachedForecaster_RefetchesAtTTL(t *testing.T) {
	inner := &countingSource{forecast: singlePeriod(20)}
	cached, clock, _ := newCached(inner, 5*time.Minute)

	_, _ = cached.Forecast(t.Context(), testCoords)
	clock.Advance(5 * time.Minute)
	inner.forecast = singlePeriod(22)
	f, err := cached.Forecast(t.Context(), testCoords)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.InDelta(t, 22, f.Periods[0].Temperature, 0)
}

func TestCachedForecaster_ErrorsAndEmptyNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("boom")}
	cached, _, _ := newCached(inner, time.Minute)

	_, err := cached.Forecast(t.Context(), testCoords)
	require.Error(t, err)

	inner.err = nil
	_, err = cached.Forecast(t.Context(), testCoords)
	require.NoError(t, err)
	_, err = cached.Forecast(t.Context(), testCoords)
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}

func TestCachedForecaster_OtherCoordinatesReplaceEntry(t *testing.T) {
	inner := &countingSource{forecast: singlePeriod(20)}
	cached, _, _ := newCached(inner, time.Minute)

	a := domain.Coordinates{Lat: 1, Lon: 2}
	b := domain.Coordinates{Lat: 3, Lon: 4}
	_, _ = cached.Forecast(t.Context(), a)
	_, _ = cached.Forecast(t.Context(), b)
	_, _ = cached.Forecast(t.Context(), b)
	_, _ = cached.Forecast(t.Context(), a)

	assert.Equal(t, 3, inner.calls)
}
