// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// Clock is a time of day.
type Clock struct {
	Hour, Minute, Second int
}

// On returns c on the calendar day of day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, day.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// TimeRange is a span within a day. For a plain clock time Start == End.
type TimeRange struct {
	Start, End Clock
}

// On anchors tr to day.
func (tr TimeRange) On(day time.Time) Range {
	return Range{Start: tr.Start.On(day), End: tr.End.On(day)}
}

var dayParts = map[string]TimeRange{
	"AM": {Clock{0, 0, 0}, Clock{11, 59, 59}},
	"PM": {Clock{12, 0, 0}, Clock{23, 59, 59}},
	"MO": {Clock{0, 0, 0}, Clock{11, 59, 59}},
	"AF": {Clock{12, 0, 0}, Clock{16, 59, 59}},
	"EV": {Clock{17, 0, 0}, Clock{19, 59, 59}},
	"NI": {Clock{20, 0, 0}, Clock{23, 59, 59}},
}

var clockLayouts = []string{"15:04:05", "15:04", "15"}

// DayPart resolves a day-part code (AM, PM, MO, AF, EV, NI) or an ISO clock
// time.
func DayPart(token string) (TimeRange, error) {
	token = strings.TrimSpace(token)
	if tr, ok := dayParts[strings.ToUpper(token)]; ok {
		return tr, nil
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			c := Clock{t.Hour(), t.Minute(), t.Second()}
			return TimeRange{Start: c, End: c}, nil
		}
	}
	return TimeRange{}, fmt.Errorf("%w: time %q", ErrParse, token)
}

// ParseDuration parses an ISO 8601 duration such as "PT1H30M" or "P2D".
func ParseDuration(token string) (time.Duration, error) {
	d, err := duration.Parse(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %v", ErrParse, token, err)
	}
	return d.ToTimeDuration(), nil
}
