package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Severity is the importance class of an alert.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

// SensorClass identifies which kind of sensor (or external source) raised an alert.
type SensorClass string

const (
	SensorTemperature SensorClass = "temperature"
	SensorMoisture    SensorClass = "moisture"
	SensorWeather     SensorClass = "weather"
)

// TimestampLayout is the wire format for alert timestamps: ISO-8601 in UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AlertType builds the composite type tag, e.g. "warning weather".
func AlertType(s Severity, c SensorClass) string {
	return string(s) + " " + string(c)
}

// AlertRecord is a detected threshold breach or forecast condition affecting
// one or more fibre lines. Records are immutable once persisted.
type AlertRecord struct {
	ID        string
	Type      string
	Message   string
	Timestamp time.Time
	FiberID   string // comma-separated fibre line ids, e.g. "1, 2, 3"
}

// Severity returns the severity half of the type tag.
func (a AlertRecord) Severity() Severity {
	sev, _, _ := strings.Cut(a.Type, " ")
	return Severity(sev)
}

// SensorClass returns the sensor half of the type tag.
func (a AlertRecord) SensorClass() SensorClass {
	_, class, _ := strings.Cut(a.Type, " ")
	return SensorClass(class)
}

// Fibers splits FiberID into trimmed, non-empty line ids.
func (a AlertRecord) Fibers() []string {
	parts := strings.Split(a.FiberID, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type alertJSON struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	FiberID   string   `json:"fiberId"`
	Fibers    []string `json:"fibers"`
}

// MarshalJSON renders the record with a millisecond ISO timestamp and the
// parsed fibre list alongside the raw id string.
func (a AlertRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(alertJSON{
		ID:        a.ID,
		Type:      a.Type,
		Message:   a.Message,
		Timestamp: FormatTimestamp(a.Timestamp),
		FiberID:   a.FiberID,
		Fibers:    a.Fibers(),
	})
}

// UnmarshalJSON accepts the output of MarshalJSON. Unparseable or missing
// timestamps decode as the Unix epoch.
func (a *AlertRecord) UnmarshalJSON(data []byte) error {
	var v alertJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = AlertRecord{
		ID:        v.ID,
		Type:      v.Type,
		Message:   v.Message,
		Timestamp: ParseTimestamp(v.Timestamp),
		FiberID:   v.FiberID,
	}
	return nil
}

// FormatTimestamp renders t in TimestampLayout (always UTC, "Z" suffix).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// epoch is what a missing or malformed timestamp decodes to.
var epoch = time.Unix(0, 0).UTC()

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 forms found in stored alerts. It never
// fails: empty or malformed input yields the Unix epoch so such records sort last.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return epoch
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return epoch
}
