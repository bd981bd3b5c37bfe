package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_KnownValues(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"a", 97},
		{"hello", 99162322},
		{rainMessage, 192761422},
		{"High temperature of 31.2°C predicted around 02:00 PM.", 1019944074},
		{"Test alert!", 825853299},
		// negative before the absolute value is taken
		{"fiber line 7 moisture spike", 206970329},
		// surrogate pair: two UTF-16 code units
		{"😀", 1772899},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Hash(tc.in))
		})
	}
}

func TestHash_DeterministicAndNonNegative(t *testing.T) {
	inputs := []string{"x", "Rain", "°C", "a much longer message with 31.2°C and 02:00 PM in it", "ÿĀ"}
	for _, s := range inputs {
		first := Hash(s)
		assert.GreaterOrEqual(t, first, int64(0), s)
		assert.Equal(t, first, Hash(s), s)
	}
}

func TestHash_MatchesRollingFormula(t *testing.T) {
	s := "abc"
	var h int32
	for _, c := range s {
		h = h*31 + int32(c)
	}
	assert.Equal(t, int64(h), Hash(s))
}

func TestAlertID(t *testing.T) {
	assert.Equal(t, "rain-alert-192761422", AlertID(prefixRain, rainMessage))
	assert.Equal(t, "forecast-temp-1019944074",
		AlertID(prefixHighTemp, "High temperature of 31.2°C predicted around 02:00 PM."))
}
