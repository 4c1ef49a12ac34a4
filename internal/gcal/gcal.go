// Package gcal reads busy time from and writes booking events to a Google
// Calendar through a service account.
package gcal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"booking-service/internal/booking"
	"booking-service/internal/schedule"
)

type Client struct {
	svc        *calendar.Service
	calendarID string
	location   *time.Location
}

// New authenticates as the service account and binds to calendarID.
func New(ctx context.Context, clientEmail, privateKeyPEM, calendarID string, loc *time.Location) (*Client, error) {
	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKeyPEM),
		Scopes:     []string{calendar.CalendarScope},
		TokenURL:   google.JWTTokenURL,
	}
	return NewWithOptions(ctx, calendarID, loc, option.WithHTTPClient(conf.Client(ctx)))
}

func NewWithOptions(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc, calendarID: calendarID, location: loc}, nil
}

// Busy lists the intervals in [from, to) that block bookings. Cancelled and
// transparent events are ignored; all-day events block their whole days.
func (c *Client) Busy(ctx context.Context, from, to time.Time) ([]schedule.BookedInterval, error) {
	var out []schedule.BookedInterval
	call := c.svc.Events.List(c.calendarID).
		Context(ctx).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		TimeZone(c.location.String()).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	err := call.Pages(ctx, func(events *calendar.Events) error {
		for _, item := range events.Items {
			if iv, ok := c.interval(item); ok {
				out = append(out, iv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (c *Client) interval(item *calendar.Event) (schedule.BookedInterval, bool) {
	if item.Status == "cancelled" || item.Transparency == "transparent" {
		return schedule.BookedInterval{}, false
	}
	if item.Start == nil || item.End == nil {
		return schedule.BookedInterval{}, false
	}

	if item.Start.DateTime != "" {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return schedule.BookedInterval{}, false
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return schedule.BookedInterval{}, false
		}
		return schedule.BookedInterval{Start: start, End: end}, true
	}

	start, err := time.ParseInLocation("2006-01-02", item.Start.Date, c.location)
	if err != nil {
		return schedule.BookedInterval{}, false
	}
	end, err := time.ParseInLocation("2006-01-02", item.End.Date, c.location)
	if err != nil {
		return schedule.BookedInterval{}, false
	}
	return schedule.BookedInterval{Start: start, End: end}, true
}

// InsertEvent creates the booking event and emails the attendee an invite.
func (c *Client) InsertEvent(ctx context.Context, ev booking.Event) (booking.EventRef, error) {
	overrides := make([]*calendar.EventReminder, 0, len(ev.Reminders))
	for _, r := range ev.Reminders {
		overrides = append(overrides, &calendar.EventReminder{Method: r.Method, Minutes: r.Minutes})
	}

	event := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		Attendees: []*calendar.EventAttendee{
			{Email: ev.AttendeeEmail, DisplayName: ev.AttendeeName},
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
		GuestsCanModify:         false,
		GuestsCanInviteOthers:   googleapi.Bool(false),
		GuestsCanSeeOtherGuests: googleapi.Bool(false),
	}

	conferenceVersion := int64(0)
	if ev.JoinURL != "" {
		conferenceVersion = 1
		event.ConferenceData = &calendar.ConferenceData{
			EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "video", Uri: ev.JoinURL, Label: "Zoom Meeting"},
			},
			ConferenceSolution: &calendar.ConferenceSolution{
				Name:    "Zoom Meeting",
				IconUri: "https://zoom.us/favicon.ico",
			},
		}
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).
		Context(ctx).
		SendUpdates("all").
		ConferenceDataVersion(conferenceVersion).
		Do()
	if err != nil {
		return booking.EventRef{}, fmt.Errorf("insert event: %w", err)
	}
	return booking.EventRef{ID: created.Id, HTMLLink: created.HtmlLink}, nil
}
