package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

// ForecastEvaluator applies the threshold rules to the forecast for one site.
// It implements Evaluator.
type ForecastEvaluator struct {
	source     domain.ForecastSource
	thresholds domain.Thresholds
	site       domain.Coordinates
	location   *time.Location
	fiberID    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewForecastEvaluator creates an evaluator for the given site. Times of day in
// alert messages are rendered in loc.
func NewForecastEvaluator(source domain.ForecastSource, th domain.Thresholds, site domain.Coordinates, loc *time.Location, fiberID string, logger *slog.Logger, metrics *observability.Metrics) *ForecastEvaluator {
	return &ForecastEvaluator{
		source:     source,
		thresholds: th,
		site:       site,
		location:   loc,
		fiberID:    fiberID,
		logger:     logger,
		metrics:    metrics,
	}
}

// Evaluate fetches the forecast and returns the candidates it triggers. Any
// fetch or decode failure is logged and yields no candidates.
func (e *ForecastEvaluator) Evaluate(ctx context.Context) []domain.Candidate {
	forecast, err := e.source.Forecast(ctx, e.site)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("forecast unavailable, skipping weather rules", "error", err)
			e.metrics.ForecastErrors.Inc()
		}
		return nil
	}

	candidates := domain.EvaluateForecast(forecast, e.thresholds, domain.EvaluateOptions{
		Now:      domain.Now(),
		Location: e.location,
		FiberID:  e.fiberID,
	})
	for _, c := range candidates {
		e.metrics.CandidatesRaised.WithLabelValues(string(c.Rule)).Inc()
	}
	e.logger.Debug("forecast evaluated", "periods", len(forecast.Periods), "candidates", len(candidates))
	return candidates
}
