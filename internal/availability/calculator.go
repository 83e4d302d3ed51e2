// Package availability derives blocked time intervals from existing
// bookings and the working-calendar settings.  It is pure computation:
// callers feed it the non-cancelled booking set and the current
// settings and receive per-date blocked ranges plus the raw settings
// so clients can enumerate candidate slots themselves.
package availability

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// Interval is a blocked hour range on a single date.  Hours are
// fractional, so 9.5 means 9:30.
type Interval struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Result is the availability response: blocked intervals keyed by date
// plus the settings the intervals were derived from.
type Result struct {
	Booked        map[string][]Interval `json:"booked"`
	WorkDays      []int                 `json:"work_days"`
	WorkStart     int                   `json:"work_start"`
	WorkEnd       int                   `json:"work_end"`
	BufferMinutes int                   `json:"buffer_minutes"`
}

var timePattern = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)

// ParseClock converts a 12-hour "h:mm AM/PM" string to a fractional
// 24-hour value.  Returns false when the string does not match.
func ParseClock(s string) (float64, bool) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h < 1 || h > 12 {
		return 0, false
	}
	min, err := strconv.Atoi(m[2])
	if err != nil || min > 59 {
		return 0, false
	}
	if strings.EqualFold(m[3], "PM") && h != 12 {
		h += 12
	}
	if strings.EqualFold(m[3], "AM") && h == 12 {
		h = 0
	}
	return float64(h) + float64(min)/60, true
}

// Duration in hours a booking implicitly occupies when it carries no
// explicit end time.
func implicitDuration(t model.BookingType) float64 {
	if t == model.BookingTypeFree {
		return 0.5
	}
	return 1
}

// Compute derives the blocked intervals.  Each booking contributes
// {from: start, to: end + buffer}; bookings with an unparsable start
// time are skipped rather than failing the whole calculation.  An
// unparsable explicit end time falls back to the implicit type-based
// duration.  Intervals are emitted in input order; overlap checks must
// test every interval for the date, not assume sortedness.
func Compute(bookings []model.Booking, s model.WorkSettings) Result {
	buffer := float64(s.BufferMinutes) / 60
	booked := make(map[string][]Interval)
	for _, b := range bookings {
		start, ok := ParseClock(b.Time)
		if !ok {
			continue
		}
		end := start + implicitDuration(b.Type)
		if b.EndTime != nil {
			if e, ok := ParseClock(*b.EndTime); ok {
				end = e
			}
		}
		booked[b.Date] = append(booked[b.Date], Interval{From: start, To: end + buffer})
	}
	return Result{
		Booked:        booked,
		WorkDays:      s.WorkDays,
		WorkStart:     s.WorkStart,
		WorkEnd:       s.WorkEnd,
		BufferMinutes: s.BufferMinutes,
	}
}

// Overlaps reports whether a candidate interval collides with any of
// the date's blocked intervals.
func Overlaps(intervals []Interval, from, to float64) bool {
	for _, iv := range intervals {
		if from < iv.To && to > iv.From {
			return true
		}
	}
	return false
}
