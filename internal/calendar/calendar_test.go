// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(t *testing.T) Resolver {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*3600)
	}
	return Resolver{
		Location: loc,
		Now:      func() time.Time { return time.Date(2024, 3, 14, 21, 30, 0, 0, time.UTC) },
	}
}

func day(r Resolver, y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, r.Location)
}

func TestResolveRanges(t *testing.T) {
	r := testResolver(t)
	tests := []struct {
		token      string
		start, end time.Time
	}{
		{"2024-WI", day(r, 2024, 12, 1), day(r, 2025, 2, 28)},
		{"2024-SP", day(r, 2024, 3, 1), day(r, 2024, 5, 31)},
		{"2024-SU", day(r, 2024, 6, 1), day(r, 2024, 8, 31)},
		{"2024-FA", day(r, 2024, 9, 1), day(r, 2024, 11, 30)},
		{"2023-WI", day(r, 2023, 12, 1), day(r, 2024, 2, 29)},
		{"2024-W05-WE", day(r, 2024, 2, 3), day(r, 2024, 2, 4)},
		{"2021-W01-WE", day(r, 2021, 1, 9), day(r, 2021, 1, 10)},
		{"201X", day(r, 2010, 1, 1), day(r, 2019, 12, 31)},
		{"20XX", day(r, 2000, 1, 1), day(r, 2099, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			res, err := r.Resolve(tt.token)
			require.NoError(t, err)
			require.True(t, res.IsRange())
			rng := res.Range()
			assert.True(t, tt.start.Equal(rng.Start), "start %s", rng.Start)
			assert.True(t, tt.end.Equal(rng.End), "end %s", rng.End)
			assert.True(t, rng.AllDay)
		})
	}
}

func TestResolveWeekendIsSaturdaySunday(t *testing.T) {
	r := testResolver(t)
	res, err := r.Resolve("2024-W05-WE")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, res.Range().Start.Weekday())
	assert.Equal(t, time.Sunday, res.Range().End.Weekday())
	_, week := res.Range().Start.ISOWeek()
	assert.Equal(t, 5, week)
}

func TestResolveInstants(t *testing.T) {
	r := testResolver(t)
	tests := []struct {
		token string
		want  time.Time
	}{
		{"2024-07-04", day(r, 2024, 7, 4)},
		{"2024-07", day(r, 2024, 7, 1)},
		{"2024", day(r, 2024, 1, 1)},
		{"2024-W05", day(r, 2024, 1, 29)},
		{"2024-W05-3", day(r, 2024, 1, 31)},
		{"2024-07-04T20:15", time.Date(2024, 7, 4, 20, 15, 0, 0, r.Location)},
		{"2024-07-04T20:15:30", time.Date(2024, 7, 4, 20, 15, 30, 0, r.Location)},
		{"2024-07-04T20:15:00Z", time.Date(2024, 7, 4, 20, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			res, err := r.Resolve(tt.token)
			require.NoError(t, err)
			require.False(t, res.IsRange())
			assert.True(t, tt.want.Equal(res.Instant()), "got %s", res.Instant())
		})
	}
}

func TestResolvePresentRefIsToday(t *testing.T) {
	r := testResolver(t)
	for _, token := range []string{"PRESENT_REF", "", "  "} {
		res, err := r.Resolve(token)
		require.NoError(t, err)
		require.False(t, res.IsRange())
		// 21:30 UTC on the 14th is still the 14th in New York.
		assert.True(t, day(r, 2024, 3, 14).Equal(res.Instant()), "got %s", res.Instant())
	}
}

func TestResolveErrors(t *testing.T) {
	r := testResolver(t)
	for _, token := range []string{"tomorrow", "2024-XX-01", "2024-W60-WE", "2021-W53", "20X"} {
		_, err := r.Resolve(token)
		require.ErrorIs(t, err, ErrParse, token)
	}
}

func TestWidenInstant(t *testing.T) {
	r := testResolver(t)
	res, err := r.Resolve("2024-07-04")
	require.NoError(t, err)

	rng := res.WidenDays(1)
	assert.True(t, day(r, 2024, 7, 4).Equal(rng.Start))
	assert.True(t, day(r, 2024, 7, 5).Equal(rng.End))
	assert.False(t, rng.AllDay)

	ranged, err := r.Resolve("2024-SU")
	require.NoError(t, err)
	assert.Equal(t, ranged.Range(), ranged.WidenDays(1))
}

func TestWidenDaysFollowsDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r := Resolver{Location: ny}

	tests := []struct {
		token string
		hours time.Duration
	}{
		{"2024-11-03", 25 * time.Hour},
		{"2024-03-10", 23 * time.Hour},
		{"2024-07-04", 24 * time.Hour},
	}
	for _, tt := range tests {
		res, err := r.Resolve(tt.token)
		require.NoError(t, err, tt.token)
		rng := res.WidenDays(1)
		assert.Equal(t, tt.hours, rng.End.Sub(rng.Start), tt.token)
		assert.Equal(t, 0, rng.End.Hour(), tt.token)
	}
}

func TestRangeBoundsCoverWholeLastDay(t *testing.T) {
	r := testResolver(t)
	res, err := r.Resolve("2024-W05-WE")
	require.NoError(t, err)
	rng := res.Range()

	sundayNight := time.Date(2024, 2, 4, 23, 0, 0, 0, r.Location)
	monday := day(r, 2024, 2, 5)
	assert.True(t, rng.Contains(rng.Start))
	assert.True(t, rng.Contains(sundayNight))
	assert.False(t, rng.Contains(monday))

	widened := Range{Start: monday, End: monday.Add(time.Hour)}
	assert.True(t, widened.Contains(monday.Add(time.Hour)))
	assert.False(t, widened.Contains(monday.Add(time.Hour+time.Second)))
}
