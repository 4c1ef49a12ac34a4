package schedule

import (
	"fmt"
	"time"
)

// KeyLayout is the local date-time form clients use to name a slot.
const KeyLayout = "2006-01-02T15:04"

// CandidateSlot is one bookable window offered to a client.
type CandidateSlot struct {
	Start     time.Time
	Duration  time.Duration
	Available bool
}

func (s CandidateSlot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Key is the slot start in the slot's own location, e.g. "2025-06-16T09:30".
func (s CandidateSlot) Key() string {
	return s.Start.Format(KeyLayout)
}

// BookedInterval is a busy window read from the external calendar.
type BookedInterval struct {
	Start time.Time
	End   time.Time
}

// GenerateSlots chunks the opening window of date into slots starting every
// cadence, from hours.Start:00 up to but excluding hours.End:00. A nil window
// yields no slots. Only the calendar date of date is used.
func GenerateSlots(date time.Time, hours *OpenInterval, cadence, length time.Duration, loc *time.Location) []CandidateSlot {
	if hours == nil || cadence <= 0 {
		return nil
	}
	if loc == nil {
		loc = date.Location()
	}

	year, month, day := date.Date()
	open := time.Date(year, month, day, hours.Start, 0, 0, 0, loc)
	closeAt := time.Date(year, month, day, hours.End, 0, 0, 0, loc)

	var slots []CandidateSlot
	for s := open; s.Before(closeAt); s = s.Add(cadence) {
		slots = append(slots, CandidateSlot{Start: s, Duration: length, Available: true})
	}
	return slots
}

// ParseDate reads a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}
