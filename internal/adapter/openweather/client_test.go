package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

// Two 3-hourly periods trimmed from a real forecast response.
const forecastBody = `{
  "cod": "200",
  "cnt": 2,
  "list": [
    {"dt": 1717250400, "main": {"temp": 31.2, "humidity": 55}, "weather": [{"main": "Clear", "description": "clear sky"}]},
    {"dt": 1717261200, "main": {"temp": 27.4, "humidity": 41}, "weather": [{"main": "Rain", "description": "light rain"}, {"main": "Clouds", "description": "overcast"}]}
  ]
}`

var testCoords = domain.Coordinates{Lat: 37.93368938103214, Lon: -7.7964679692230865}

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Forecast_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "37.93368938103214", q.Get("lat"))
		assert.Equal(t, "-7.7964679692230865", q.Get("lon"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, testAPIKey, q.Get("appid"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, forecastBody)
	}))
	defer srv.Close()

	f, err := testClient(srv.URL).Forecast(context.Background(), testCoords)
	require.NoError(t, err)
	require.Len(t, f.Periods, 2)

	first := f.Periods[0]
	assert.Equal(t, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 31.2, first.Temperature)
	assert.Equal(t, 55.0, first.Humidity)
	assert.Equal(t, []string{"Clear"}, first.Conditions)

	assert.Equal(t, []string{"Rain", "Clouds"}, f.Periods[1].Conditions)
}

func TestClient_Forecast_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), testCoords)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Forecast_MissingList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"cod":"200"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), testCoords)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing forecast list")
}

func TestClient_Forecast_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"list": [`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), testCoords)
	require.Error(t, err)
}

func TestClient_Forecast_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Forecast(context.Background(), testCoords)
	require.Error(t, err)
}

func TestDecodeForecast(t *testing.T) {
	f, err := DecodeForecast(strings.NewReader(forecastBody))
	require.NoError(t, err)
	assert.Len(t, f.Periods, 2)

	_, err = DecodeForecast(strings.NewReader(`{}`))
	require.Error(t, err)
}
