// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package calendar resolves the date, time and duration tokens produced by
// voice-assistant slot filling into concrete instants and ranges.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PresentRef is the token for "now"; it resolves to today.
const PresentRef = "PRESENT_REF"

// ErrParse is returned for tokens no rule understands.
var ErrParse = errors.New("calendar: unrecognised date token")

var (
	seasonPattern  = regexp.MustCompile(`^(\d{4})-(WI|SP|SU|FA)$`)
	weekendPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})-WE$`)
	weekPattern    = regexp.MustCompile(`^(\d{4})-W(\d{2})(?:-([1-7]))?$`)
	decadePattern  = regexp.MustCompile(`^(\d{3})X$`)
	centuryPattern = regexp.MustCompile(`^(\d{2})XX$`)
)

var seasonMonth = map[string]time.Month{
	"WI": time.December,
	"SP": time.March,
	"SU": time.June,
	"FA": time.September,
}

// Instant layouts tried in order after the range rules.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Range is a closed span of time. AllDay ranges name whole days: End is
// midnight of the last day included.
type Range struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Bounds returns the inclusive first and last instants of r.
func (r Range) Bounds() (time.Time, time.Time) {
	if !r.AllDay {
		return r.Start, r.End
	}
	return r.Start, r.End.AddDate(0, 0, 1).Add(-time.Second)
}

// Contains reports whether t lies within r's bounds, inclusive at both ends.
func (r Range) Contains(t time.Time) bool {
	from, to := r.Bounds()
	return !t.Before(from) && !t.After(to)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Result is either a single instant or a range.
type Result struct {
	instant time.Time
	rng     Range
	isRange bool
}

// IsRange reports whether the token named a span.
func (r Result) IsRange() bool { return r.isRange }

// Instant returns the instant, or the range start.
func (r Result) Instant() time.Time {
	if r.isRange {
		return r.rng.Start
	}
	return r.instant
}

// Range returns the range; for an instant it is the zero-width range at it.
func (r Result) Range() Range {
	if r.isRange {
		return r.rng
	}
	return Range{Start: r.instant, End: r.instant}
}

// WidenDays returns the range, or [instant, instant+n calendar days] for an
// instant. Days follow the instant's location, so a DST change yields a 23h
// or 25h day.
func (r Result) WidenDays(n int) Range {
	if r.isRange {
		return r.rng
	}
	return Range{Start: r.instant, End: r.instant.AddDate(0, 0, n)}
}

// Resolver resolves tokens relative to a location and clock.
type Resolver struct {
	Location *time.Location
	Now      func() time.Time
}

func (r Resolver) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r Resolver) date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, r.loc())
}

func (r Resolver) span(start, end time.Time) Result {
	return Result{rng: Range{Start: start, End: end, AllDay: true}, isRange: true}
}

// Resolve interprets token. Seasons, ISO weekends and decade or century
// wildcards yield ranges; everything else is parsed as a single instant.
func (r Resolver) Resolve(token string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.EqualFold(token, PresentRef) {
		n := r.now().In(r.loc())
		return Result{instant: r.date(n.Year(), n.Month(), n.Day())}, nil
	}

	if m := seasonPattern.FindStringSubmatch(token); m != nil {
		year, _ := strconv.Atoi(m[1])
		start := r.date(year, seasonMonth[m[2]], 1)
		return r.span(start, start.AddDate(0, 3, -1)), nil
	}
	if m := weekendPattern.FindStringSubmatch(token); m != nil {
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		sat, err := r.isoWeekDay(year, week, 6)
		if err != nil {
			return Result{}, err
		}
		return r.span(sat, sat.AddDate(0, 0, 1)), nil
	}
	if m := centuryPattern.FindStringSubmatch(token); m != nil {
		c, _ := strconv.Atoi(m[1])
		start := r.date(c*100, time.January, 1)
		return r.span(start, start.AddDate(100, 0, -1)), nil
	}
	if m := decadePattern.FindStringSubmatch(token); m != nil {
		d, _ := strconv.Atoi(m[1])
		start := r.date(d*10, time.January, 1)
		return r.span(start, start.AddDate(10, 0, -1)), nil
	}

	t, err := r.parseInstant(token)
	if err != nil {
		return Result{}, err
	}
	return Result{instant: t}, nil
}

func (r Resolver) parseInstant(token string) (time.Time, error) {
	if m := weekPattern.FindStringSubmatch(token); m != nil {
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		day := 1
		if m[3] != "" {
			day, _ = strconv.Atoi(m[3])
		}
		return r.isoWeekDay(year, week, day)
	}
	for _, layout := range instantLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, token); err == nil {
				return t.In(r.loc()), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, token, r.loc()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParse, token)
}

// isoWeekDay returns weekday (1 = Monday) of ISO week of year.
func (r Resolver) isoWeekDay(year, week, weekday int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("%w: week %d", ErrParse, week)
	}
	// January 4th always falls in week 1.
	jan4 := r.date(year, time.January, 4)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	t := monday.AddDate(0, 0, (week-1)*7+weekday-1)
	if _, w := t.ISOWeek(); w != week {
		return time.Time{}, fmt.Errorf("%w: %d has no week %d", ErrParse, year, week)
	}
	return t, nil
}
