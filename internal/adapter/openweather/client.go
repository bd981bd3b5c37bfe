package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

// DefaultBaseURL is the OpenWeatherMap 5 day / 3 hour forecast endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

// Client implements domain.ForecastSource using the OpenWeatherMap forecast API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Forecast fetches the metric-unit forecast for a coordinate.
func (c *Client) Forecast(ctx context.Context, at domain.Coordinates) (domain.Forecast, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.Forecast{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Forecast{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var fr response
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.Forecast{}, fmt.Errorf("decode response: %w", err)
	}
	if fr.List == nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.Forecast{}, fmt.Errorf("decode response: missing forecast list")
	}

	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forecast fetched", "periods", len(fr.List), "lat", at.Lat, "lon", at.Lon)
	return fr.toDomain(), nil
}

// OpenWeatherMap API response types.

type response struct {
	List []period `json:"list"`
}

type period struct {
	Dt   int64 `json:"dt"` // unix seconds
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

func (r response) toDomain() domain.Forecast {
	periods := make([]domain.ForecastPeriod, 0, len(r.List))
	for _, p := range r.List {
		conditions := make([]string, 0, len(p.Weather))
		for _, w := range p.Weather {
			conditions = append(conditions, w.Main)
		}
		periods = append(periods, domain.ForecastPeriod{
			Time:        time.Unix(p.Dt, 0).UTC(),
			Temperature: p.Main.Temp,
			Humidity:    p.Main.Humidity,
			Conditions:  conditions,
		})
	}
	return domain.Forecast{Periods: periods}
}

// DecodeForecast parses a saved forecast API response body.
func DecodeForecast(r io.Reader) (domain.Forecast, error) {
	var fr response
	if err := json.NewDecoder(r).Decode(&fr); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode forecast: %w", err)
	}
	if fr.List == nil {
		return domain.Forecast{}, fmt.Errorf("decode forecast: missing forecast list")
	}
	return fr.toDomain(), nil
}
