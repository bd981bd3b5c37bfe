package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
)

func TestMapMessageToAlert(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key: []byte("rain-alert-192761422"),
		Value: []byte(`{"id":"rain-alert-192761422","type":"info weather",
			"message":"Rain expected in the next few hours. Prepare accordingly.",
			"timestamp":"2024-06-01T14:00:00.000Z","fiberId":"1, 2, 3"}`),
		Topic:     "fiber-alerts",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "alert_type", Value: []byte("info weather")},
		},
	}

	got, err := mapMessageToAlert(msg)
	require.NoError(t, err)

	assert.Equal(t, "rain-alert-192761422", got.Alert.ID)
	assert.Equal(t, domain.SeverityInfo, got.Alert.Severity())
	assert.Equal(t, []string{"1", "2", "3"}, got.Alert.Fibers())
	assert.Equal(t, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC), got.Alert.Timestamp)
	assert.Equal(t, 2, got.Partition)
	assert.Equal(t, int64(42), got.Offset)
	assert.Equal(t, now, got.Time)
	assert.Equal(t, "info weather", got.Headers["alert_type"])
}

func TestMapMessageToAlert_BadPayload(t *testing.T) {
	_, err := mapMessageToAlert(kafkago.Message{Value: []byte("nope"), Offset: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 7")
}

func TestSerializeToMessage(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	alert := domain.AlertRecord{
		ID:        "forecast-temp-1019944074",
		Type:      "warning weather",
		Message:   "High temperature of 31.2°C predicted around 02:00 PM.",
		Timestamp: ts,
		FiberID:   "1, 2, 3",
	}

	msg, err := serializeToMessage(alert)
	require.NoError(t, err)

	assert.Equal(t, []byte("forecast-temp-1019944074"), msg.Key)
	assert.Contains(t, string(msg.Value), `"type":"warning weather"`)
	assert.Contains(t, string(msg.Value), `"fibers":["1","2","3"]`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "alert_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("warning weather"), msg.Headers[0].Value)
	assert.Equal(t, "timestamp", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-06-01T14:00:00.000Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_RoundTrip(t *testing.T) {
	alert := domain.AlertRecord{
		ID:        "snow-alert-1",
		Type:      "info weather",
		Message:   "Snow predicted",
		Timestamp: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		FiberID:   "2",
	}
	msg, err := serializeToMessage(alert)
	require.NoError(t, err)

	got, err := mapMessageToAlert(msg)
	require.NoError(t, err)
	assert.Equal(t, alert, got.Alert)
}

func TestPublishAlerts_EmptyIsNoop(t *testing.T) {
	w := NewWriter([]string{"localhost:1"}, "fiber-alerts", nil)
	defer w.Close()
	require.NoError(t, w.PublishAlerts(t.Context(), nil))
}
