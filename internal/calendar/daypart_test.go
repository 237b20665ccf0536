// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayPartTable(t *testing.T) {
	tests := map[string]TimeRange{
		"AM": {Clock{0, 0, 0}, Clock{11, 59, 59}},
		"PM": {Clock{12, 0, 0}, Clock{23, 59, 59}},
		"MO": {Clock{0, 0, 0}, Clock{11, 59, 59}},
		"AF": {Clock{12, 0, 0}, Clock{16, 59, 59}},
		"EV": {Clock{17, 0, 0}, Clock{19, 59, 59}},
		"ni": {Clock{20, 0, 0}, Clock{23, 59, 59}},
	}
	for token, want := range tests {
		got, err := DayPart(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
}

func TestDayPartClockTimes(t *testing.T) {
	got, err := DayPart("20:15")
	require.NoError(t, err)
	assert.Equal(t, Clock{20, 15, 0}, got.Start)
	assert.Equal(t, got.Start, got.End)

	got, err = DayPart("07:05:09")
	require.NoError(t, err)
	assert.Equal(t, "07:05:09", got.Start.String())

	_, err = DayPart("teatime")
	require.ErrorIs(t, err, ErrParse)
}

func TestTimeRangeOn(t *testing.T) {
	ev, err := DayPart("EV")
	require.NoError(t, err)
	d := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rng := ev.On(d)
	assert.Equal(t, time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC), rng.Start)
	assert.Equal(t, time.Date(2024, 5, 1, 19, 59, 59, 0, time.UTC), rng.End)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"PT30M":   30 * time.Minute,
		"PT1H30M": 90 * time.Minute,
		"P1D":     24 * time.Hour,
		"PT45S":   45 * time.Second,
	}
	for token, want := range tests {
		got, err := ParseDuration(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}

	_, err := ParseDuration("half an hour")
	require.ErrorIs(t, err, ErrParse)
}
