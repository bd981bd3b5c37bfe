package domain

import (
	"context"
	"time"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// ForecastPeriod is one step (typically three hours) of a multi-period forecast.
type ForecastPeriod struct {
	Time        time.Time
	Temperature float64  // °C
	Humidity    float64  // %
	Conditions  []string // provider weather descriptors, e.g. "Rain", "Clouds"
}

// Forecast is an ordered list of upcoming periods, nearest first.
type Forecast struct {
	Periods []ForecastPeriod
}

// ForecastSource fetches a forecast for a fixed coordinate.
type ForecastSource interface {
	Forecast(ctx context.Context, at Coordinates) (Forecast, error)
}
