// Package domain models fibre-line alerts and the weather forecast rules that
// raise them.
//
// # Alert identity
//
// An alert's id is "<rule prefix><hash>", where the hash is a 32-bit polynomial
// rolling hash of the alert message:
//
//	h = h*31 + c   (signed 32-bit wraparound, c = UTF-16 code unit)
//	id = prefix + |h|
//
// Identical message text always yields the same id, so the id doubles as the
// deduplication key when fresh candidates are merged with stored alerts. The
// hash walks UTF-16 code units and must stay bit-compatible with ids already
// persisted in the hosted store.
//
// # Alert type
//
// The type tag is "<severity> <sensor class>", e.g. "warning weather":
//
//	severity:     info | warning | urgent
//	sensor class: temperature | moisture | weather
//
// # Forecast rules
//
// Only the first two forecast periods (the next ~6 hours of a 3-hourly
// forecast) are examined. Rain is checked once across both periods; the
// remaining rules fire per period and are independent of each other, except
// that high and low humidity are mutually exclusive.
//
//	rule            condition                     type             prefix
//	rain            any condition contains "rain" info weather     rain-alert-
//	high temp       temp >= HighTemp              warning weather  forecast-temp-
//	low temp        temp <= LowTemp               warning weather  low-temp-alert-
//	snow            any condition contains "snow" info weather     snow-alert-
//	high humidity   humidity >= HighHumidity      info weather     humidity-high-alert-
//	low humidity    humidity <= LowHumidity       info weather     humidity-low-alert-
//
// Timestamps travel as ISO-8601 strings with millisecond precision in UTC,
// e.g. "2024-06-01T14:00:00.000Z".
package domain
