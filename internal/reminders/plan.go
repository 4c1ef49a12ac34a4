package reminders

import "time"

type Kind string

const (
	Immediate       Kind = "immediate_confirmation"
	ThreeDaysBefore Kind = "three_days_before"
	OneDayBefore    Kind = "one_day_before"
	SixHoursBefore  Kind = "six_hours_before"
	OneHourBefore   Kind = "one_hour_before"
)

// Step is one entry of the reminder plan. Offset is measured back from the
// booking start; the Immediate step ignores it.
type Step struct {
	Kind   Kind
	Offset time.Duration
}

// Plan is fixed: confirmation now, then 3 days, 1 day, 6 hours and 1 hour out.
var Plan = []Step{
	{Kind: Immediate},
	{Kind: ThreeDaysBefore, Offset: 72 * time.Hour},
	{Kind: OneDayBefore, Offset: 24 * time.Hour},
	{Kind: SixHoursBefore, Offset: 6 * time.Hour},
	{Kind: OneHourBefore, Offset: time.Hour},
}

// SendAt returns when the step should go out. The second value is false when
// the message should be sent right away, either because the step is the
// confirmation or because its send time has already passed.
func (s Step) SendAt(start, now time.Time) (time.Time, bool) {
	if s.Kind == Immediate {
		return now, false
	}
	at := start.Add(-s.Offset)
	if !at.After(now) {
		return now, false
	}
	return at, true
}
