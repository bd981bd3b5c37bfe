package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertRecord_TypeParts(t *testing.T) {
	a := AlertRecord{Type: AlertType(SeverityWarning, SensorWeather)}
	assert.Equal(t, "warning weather", a.Type)
	assert.Equal(t, SeverityWarning, a.Severity())
	assert.Equal(t, SensorWeather, a.SensorClass())

	empty := AlertRecord{}
	assert.Empty(t, empty.Severity())
	assert.Empty(t, empty.SensorClass())
}

func TestAlertRecord_Fibers(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, AlertRecord{FiberID: "1, 2, 3"}.Fibers())
	assert.Equal(t, []string{"4"}, AlertRecord{FiberID: " 4 ,, "}.Fibers())
	assert.Empty(t, AlertRecord{}.Fibers())
}

func TestAlertRecord_JSON(t *testing.T) {
	a := AlertRecord{
		ID:        "rain-alert-192761422",
		Type:      "info weather",
		Message:   rainMessage,
		Timestamp: time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
		FiberID:   "1, 2",
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"rain-alert-192761422",
		"type":"info weather",
		"message":"Rain expected in the next few hours. Prepare accordingly.",
		"timestamp":"2024-06-01T14:00:00.000Z",
		"fiberId":"1, 2",
		"fibers":["1","2"]
	}`, string(data))

	var back AlertRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, want, ParseTimestamp("2024-06-01T14:00:00.000Z"))
	assert.Equal(t, want, ParseTimestamp("2024-06-01T14:00:00Z"))
	assert.Equal(t, want, ParseTimestamp("2024-06-01T16:00:00+02:00"))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), ParseTimestamp("2024-06-01"))

	assert.Equal(t, time.Unix(0, 0).UTC(), ParseTimestamp(""))
	assert.Equal(t, time.Unix(0, 0).UTC(), ParseTimestamp("yesterday"))
}

func TestFormatTimestamp(t *testing.T) {
	lisbon := time.FixedZone("WEST", 3600)
	ts := time.Date(2024, 6, 1, 15, 0, 0, 123456789, lisbon)
	assert.Equal(t, "2024-06-01T14:00:00.123Z", FormatTimestamp(ts))
}
