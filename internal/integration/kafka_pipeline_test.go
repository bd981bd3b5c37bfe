//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/kafka"
	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/openweather"
	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/sqlite"
	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/feed"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
	"github.com/couchcryptid/fibersight-alerts-service/internal/pipeline"
)

const testAlertTopic = "test-fiber-alerts"

// Rain plus 31.2°C in the first period; nothing notable afterwards.
const forecastBody = `{
  "list": [
    {"dt": 1717250400, "main": {"temp": 31.2, "humidity": 40}, "weather": [{"main": "Rain"}]},
    {"dt": 1717261200, "main": {"temp": 24.0, "humidity": 40}, "weather": [{"main": "Clouds"}]}
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func forecastServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecastBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestRefreshPublishesNewAlerts runs two refresh cycles against a real SQLite
// store and Kafka broker. Only the first cycle stores and publishes alerts.
func TestRefreshPublishesNewAlerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "alerts.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	writer := kafka.NewWriter([]string{broker}, testAlertTopic, logger)
	t.Cleanup(func() { _ = writer.Close() })

	source := openweather.NewClient("test-key", forecastServer(t).URL, 5*time.Second, metrics, logger)
	evaluator := pipeline.NewForecastEvaluator(source, domain.DefaultThresholds(30),
		domain.Coordinates{Lat: 37.9, Lon: -7.8}, time.UTC, "1, 2, 3", logger, metrics)

	alertFeed := feed.New(13, 20, nil)
	refresher := pipeline.NewRefresher(pipeline.RefresherOptions{
		Store:     store,
		Evaluator: evaluator,
		Feed:      alertFeed,
		Notifier:  alertFeed,
		Publisher: writer,
		ListLimit: 100,
	}, logger, metrics)

	merged, err := refresher.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	_, err = refresher.Refresh(ctx)
	require.NoError(t, err)

	stored, err := store.ListAlerts(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "second cycle must not insert duplicates")
	assert.Len(t, alertFeed.History(), 2)

	reader := kafka.NewReader([]string{broker}, testAlertTopic, "", logger)
	t.Cleanup(func() { _ = reader.Close() })

	got := map[string]kafka.AlertMessage{}
	for len(got) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadAlert(readCtx)
		readCancel()
		require.NoError(t, err, "read from alert topic")
		got[msg.Alert.ID] = msg
	}

	rain, ok := got["rain-alert-192761422"]
	require.True(t, ok)
	assert.Equal(t, "info weather", rain.Headers["alert_type"])
	assert.Equal(t, []string{"1", "2", "3"}, rain.Alert.Fibers())

	heat, ok := got["forecast-temp-1019944074"]
	require.True(t, ok)
	assert.Equal(t, domain.SeverityWarning, heat.Alert.Severity())

	// No further messages: the second cycle published nothing.
	readCtx, readCancel := context.WithTimeout(ctx, 3*time.Second)
	defer readCancel()
	_, err = reader.ReadAlert(readCtx)
	require.Error(t, err)
}
