package schedule

import "time"

// OpenInterval is a day's opening window in whole hours of the service location.
type OpenInterval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// BusinessHours is indexed by time.Weekday. A nil entry means closed.
type BusinessHours [7]*OpenInterval

// DefaultBusinessHours: Sunday through Thursday 7am-4pm, Friday mornings only,
// Saturday closed.
var DefaultBusinessHours = BusinessHours{
	time.Sunday:    {Start: 7, End: 16},
	time.Monday:    {Start: 7, End: 16},
	time.Tuesday:   {Start: 7, End: 16},
	time.Wednesday: {Start: 7, End: 16},
	time.Thursday:  {Start: 7, End: 16},
	time.Friday:    {Start: 7, End: 10},
	time.Saturday:  nil,
}

// For returns the opening window for date's weekday.
func (h BusinessHours) For(date time.Time) (OpenInterval, bool) {
	iv := h[date.Weekday()]
	if iv == nil {
		return OpenInterval{}, false
	}
	return *iv, true
}
