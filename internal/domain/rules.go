package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Rule names a forecast threshold check.
type Rule string

const (
	RuleRain         Rule = "rain"
	RuleHighTemp     Rule = "high_temperature"
	RuleLowTemp      Rule = "low_temperature"
	RuleSnow         Rule = "snow"
	RuleHighHumidity Rule = "high_humidity"
	RuleLowHumidity  Rule = "low_humidity"
)

// Id prefixes per rule. Changing any of these orphans ids already in the store.
const (
	prefixRain         = "rain-alert-"
	prefixHighTemp     = "forecast-temp-"
	prefixLowTemp      = "low-temp-alert-"
	prefixSnow         = "snow-alert-"
	prefixHighHumidity = "humidity-high-alert-"
	prefixLowHumidity  = "humidity-low-alert-"
)

// IDPrefix returns the alert id prefix for r, or "" for an unknown rule.
func (r Rule) IDPrefix() string {
	switch r {
	case RuleRain:
		return prefixRain
	case RuleHighTemp:
		return prefixHighTemp
	case RuleLowTemp:
		return prefixLowTemp
	case RuleSnow:
		return prefixSnow
	case RuleHighHumidity:
		return prefixHighHumidity
	case RuleLowHumidity:
		return prefixLowHumidity
	}
	return ""
}

const rainMessage = "Rain expected in the next few hours. Prepare accordingly."

// forecastWindow is how many leading forecast periods are evaluated.
const forecastWindow = 2

// Thresholds are the configurable bounds the forecast rules compare against.
type Thresholds struct {
	HighTemp     float64 // °C, inclusive
	LowTemp      float64 // °C, inclusive
	LowHumidity  float64 // %, inclusive
	HighHumidity float64 // %, inclusive
}

// DefaultThresholds returns the stock bounds around the given high temperature.
func DefaultThresholds(highTemp float64) Thresholds {
	return Thresholds{
		HighTemp:     highTemp,
		LowTemp:      2,
		LowHumidity:  20,
		HighHumidity: 50,
	}
}

// Validate reports low bounds that are not below their high counterpart.
// Overlapping bounds still evaluate; each rule checks its own threshold.
func (t Thresholds) Validate() error {
	if t.LowTemp >= t.HighTemp {
		return fmt.Errorf("low temperature threshold %.1f must be below high threshold %.1f", t.LowTemp, t.HighTemp)
	}
	if t.LowHumidity >= t.HighHumidity {
		return fmt.Errorf("low humidity threshold %.0f must be below high threshold %.0f", t.LowHumidity, t.HighHumidity)
	}
	return nil
}

// Candidate is a freshly evaluated alert that has not been persisted yet.
type Candidate struct {
	Alert AlertRecord
	Rule  Rule
	// Notify marks candidates that should raise an on-screen notification when
	// they are not already displayed (rain and high temperature only).
	Notify bool
}

// EvaluateOptions carries the context an evaluation needs besides the forecast.
type EvaluateOptions struct {
	Now      time.Time      // stamped on every candidate
	Location *time.Location // for the time-of-day embedded in messages; UTC if nil
	FiberID  string         // affected fibre lines
}

// EvaluateForecast applies the threshold rules to the first two periods of f.
// Multiple rules may fire for the same period.
func EvaluateForecast(f Forecast, th Thresholds, opts EvaluateOptions) []Candidate {
	periods := f.Periods
	if len(periods) > forecastWindow {
		periods = periods[:forecastWindow]
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	var out []Candidate
	add := func(rule Rule, prefix string, sev Severity, message string, notify bool) {
		out = append(out, Candidate{
			Alert: AlertRecord{
				ID:        AlertID(prefix, message),
				Type:      AlertType(sev, SensorWeather),
				Message:   message,
				Timestamp: opts.Now,
				FiberID:   opts.FiberID,
			},
			Rule:   rule,
			Notify: notify,
		})
	}

	for _, p := range periods {
		if hasCondition(p, "rain") {
			add(RuleRain, prefixRain, SeverityInfo, rainMessage, true)
			break
		}
	}

	for _, p := range periods {
		at := TimeOfDay(p.Time, opts.Location)
		temp := FormatTemperature(p.Temperature)

		if p.Temperature >= th.HighTemp {
			add(RuleHighTemp, prefixHighTemp, SeverityWarning,
				fmt.Sprintf("High temperature of %s°C predicted around %s.", temp, at), true)
		}
		if p.Temperature <= th.LowTemp {
			add(RuleLowTemp, prefixLowTemp, SeverityWarning,
				fmt.Sprintf("Low temperature of %s°C predicted. Frost may occur around %s.", temp, at), false)
		}
		if hasCondition(p, "snow") {
			add(RuleSnow, prefixSnow, SeverityInfo,
				fmt.Sprintf("Snow predicted around %s with temperatures of %s°C.", at, temp), false)
		}

		humidity := strconv.FormatFloat(p.Humidity, 'f', -1, 64)
		switch {
		case p.Humidity >= th.HighHumidity:
			add(RuleHighHumidity, prefixHighHumidity, SeverityInfo,
				fmt.Sprintf("High humidity (%s%%) expected around %s.", humidity, at), false)
		case p.Humidity <= th.LowHumidity:
			add(RuleLowHumidity, prefixLowHumidity, SeverityInfo,
				fmt.Sprintf("Very low humidity (%s%%) expected around %s.", humidity, at), false)
		}
	}

	return out
}

func hasCondition(p ForecastPeriod, word string) bool {
	for _, c := range p.Conditions {
		if strings.Contains(strings.ToLower(c), word) {
			return true
		}
	}
	return false
}

// TimeOfDay renders t as a two-digit 12-hour clock in loc, e.g. "02:00 PM".
func TimeOfDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("03:04 PM")
}

// FormatTemperature renders v with one decimal. Values exactly halfway between
// two tenths round away from zero (31.25 -> "31.3"); everything else rounds to
// the nearest tenth of the exact binary value.
func FormatTemperature(v float64) string {
	scaled := new(big.Float).SetPrec(128).SetFloat64(v)
	scaled.Mul(scaled, big.NewFloat(10))

	whole, _ := scaled.Int(nil) // truncates toward zero
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetInt(whole))
	if frac.Abs(frac).Cmp(big.NewFloat(0.5)) != 0 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}

	n := whole.Int64()
	neg := v < 0
	if neg {
		n = -n
	}
	n++
	s := strconv.FormatInt(n/10, 10) + "." + strconv.FormatInt(n%10, 10)
	if neg {
		s = "-" + s
	}
	return s
}
