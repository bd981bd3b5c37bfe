package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.AlertsInserted.Inc()
	a.CandidatesRaised.WithLabelValues("rain").Add(2)

	assert.InDelta(t, 1.0, testutil.ToFloat64(a.AlertsInserted), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(a.CandidatesRaised.WithLabelValues("rain")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.AlertsInserted), 0)
}

func TestNewUnregisteredMetrics_RegistersCleanly(t *testing.T) {
	m := NewUnregisteredMetrics()
	reg := prometheus.NewPedanticRegistry()

	require.NoError(t, reg.Register(m.AlertsInserted))
	require.NoError(t, reg.Register(m.ForecastCache))

	m.ForecastCache.WithLabelValues("hit").Inc()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ForecastCache.WithLabelValues("hit")), 0)
}
