package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Merge returns a copy of slots with every slot that overlaps a booked
// interval marked unavailable. An exact start match always overlaps.
func Merge(slots []CandidateSlot, booked []BookedInterval) []CandidateSlot {
	out := make([]CandidateSlot, len(slots))
	copy(out, slots)

	for i := range out {
		if !out[i].Available {
			continue
		}
		for _, b := range booked {
			if overlaps(out[i], b) {
				out[i].Available = false
				break
			}
		}
	}
	return out
}

func overlaps(s CandidateSlot, b BookedInterval) bool {
	if b.Start.Equal(s.Start) {
		return true
	}
	return b.Start.Before(s.End()) && b.End.After(s.Start)
}

// BusyReader lists busy intervals on the external calendar.
type BusyReader interface {
	Busy(ctx context.Context, from, to time.Time) ([]BookedInterval, error)
}

// Day is the annotated availability for one calendar date.
type Day struct {
	Date     time.Time
	Hours    *OpenInterval
	Slots    []CandidateSlot
	Booked   []string
	Degraded bool
}

// Planner answers availability questions for single days.
type Planner struct {
	Calendar   BusyReader
	Hours      BusinessHours
	Cadence    time.Duration
	SlotLength time.Duration
	Horizon    int // days after today that can still be booked
	Location   *time.Location
	Now        func() time.Time
	Log        *zap.Logger
}

// Zone is the business time zone, UTC when none is set.
func (p *Planner) Zone() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p *Planner) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now().In(p.Zone())
	}
	return time.Now().In(p.Zone())
}

// InHorizon reports whether date falls between today and today+Horizon inclusive.
func (p *Planner) InHorizon(date time.Time) bool {
	y, m, d := p.now().Date()
	loc := p.Zone()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	last := today.AddDate(0, 0, p.Horizon)

	dy, dm, dd := date.Date()
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, loc)
	return !day.Before(today) && !day.After(last)
}

// Day builds the slot grid for date and merges it against the external
// calendar. A failed or missing calendar fails open: every slot stays
// available and the day is flagged Degraded.
func (p *Planner) Day(ctx context.Context, date time.Time) Day {
	y, m, d := date.Date()
	loc := p.Zone()
	date = time.Date(y, m, d, 0, 0, 0, 0, loc)
	out := Day{Date: date}

	if !p.InHorizon(date) {
		return out
	}
	hours, open := p.Hours.For(date)
	if !open {
		return out
	}
	out.Hours = &hours

	slots := GenerateSlots(date, &hours, p.Cadence, p.SlotLength, loc)
	now := p.now()
	for i := range slots {
		if slots[i].Start.Before(now) {
			slots[i].Available = false
		}
	}

	if p.Calendar == nil {
		p.logger().Warn("calendar not configured, showing all slots as available", zap.Time("date", date))
		out.Slots = slots
		out.Degraded = true
		return out
	}

	booked, err := p.Calendar.Busy(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		p.logger().Warn("calendar fetch failed, showing all slots as available",
			zap.Time("date", date),
			zap.Error(err),
		)
		out.Slots = slots
		out.Degraded = true
		return out
	}

	out.Slots = Merge(slots, booked)
	for i := range out.Slots {
		if slots[i].Available && !out.Slots[i].Available {
			out.Booked = append(out.Booked, out.Slots[i].Key())
		}
	}
	return out
}
