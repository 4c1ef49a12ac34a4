package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"booking-service/internal/apperrors"
	"booking-service/internal/attempt"
)

type Meeting struct {
	ID      string
	JoinURL string
}

type ReminderOverride struct {
	Method  string
	Minutes int64
}

// DefaultOverrides are the calendar-side reminders attached to every event.
var DefaultOverrides = []ReminderOverride{
	{Method: "email", Minutes: 60},
	{Method: "email", Minutes: 360},
	{Method: "email", Minutes: 1440},
	{Method: "email", Minutes: 4320},
	{Method: "popup", Minutes: 60},
}

type Event struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeEmail string
	AttendeeName  string
	// JoinURL is only set for a freshly provisioned meeting and becomes the
	// event's conference entry point.
	JoinURL   string
	Reminders []ReminderOverride
}

type EventRef struct {
	ID       string
	HTMLLink string
}

type MeetingProvider interface {
	CreateMeeting(ctx context.Context, topic string, start time.Time, duration time.Duration) (Meeting, error)
}

type EventWriter interface {
	InsertEvent(ctx context.Context, ev Event) (EventRef, error)
}

// Confirmed is a booking that passed validation. Meeting and Calendar keep
// the outcome of each best-effort write.
type Confirmed struct {
	Start             time.Time
	End               time.Time
	MeetingJoinURL    string
	MeetingID         string
	CalendarEventID   string
	CalendarEventLink string

	Meeting  attempt.Attempt[Meeting]
	Calendar attempt.Attempt[EventRef]
}

type Writer struct {
	meetings        MeetingProvider
	calendar        EventWriter
	location        *time.Location
	sessionLength   time.Duration
	fallbackJoinURL string
	log             *zap.Logger
	validate        *validator.Validate
}

// NewWriter builds a Writer. meetings and calendar may be nil when the
// integration is not configured.
func NewWriter(meetings MeetingProvider, calendar EventWriter, loc *time.Location, sessionLength time.Duration, fallbackJoinURL string, log *zap.Logger) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		meetings:        meetings,
		calendar:        calendar,
		location:        loc,
		sessionLength:   sessionLength,
		fallbackJoinURL: fallbackJoinURL,
		log:             log,
		validate:        newValidator(),
	}
}

// Create validates req and then provisions the meeting and calendar event.
// Only a validation error is returned; provider failures are logged and
// reflected in the Confirmed attempts.
func (w *Writer) Create(ctx context.Context, req Request) (*Confirmed, error) {
	req.normalize()
	if err := w.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	start, err := parseStart(req.DateTime, w.location)
	if err != nil {
		return nil, err
	}

	out := &Confirmed{Start: start, End: start.Add(w.sessionLength)}

	out.Meeting = w.createMeeting(ctx, req, start)
	m := out.Meeting.Or(Meeting{JoinURL: w.fallbackJoinURL})
	out.MeetingID, out.MeetingJoinURL = m.ID, m.JoinURL

	out.Calendar = w.insertEvent(ctx, req, out)
	if out.Calendar.OK() {
		out.CalendarEventID = out.Calendar.Value.ID
		out.CalendarEventLink = out.Calendar.Value.HTMLLink
	}

	w.log.Info("booking confirmed",
		zap.Time("start", out.Start),
		zap.Bool("meeting", out.Meeting.OK()),
		zap.Bool("calendar", out.Calendar.OK()),
		zap.Bool("attributed", !req.Attribution.Empty()),
		zap.String("utm_source", req.Attribution.UTMSource),
	)
	return out, nil
}

func (w *Writer) createMeeting(ctx context.Context, req Request, start time.Time) attempt.Attempt[Meeting] {
	if w.meetings == nil {
		w.log.Warn("meeting provider not configured, using fallback link")
		return attempt.Skipped[Meeting]()
	}
	a := attempt.Try(func() (Meeting, error) {
		return w.meetings.CreateMeeting(ctx, "Fit Call with "+req.FullName(), start, w.sessionLength)
	})
	if !a.OK() {
		a.Err = apperrors.Provisioning("meeting", a.Err)
		w.log.Warn("meeting provisioning failed", zap.Error(a.Err))
	}
	return a
}

func (w *Writer) insertEvent(ctx context.Context, req Request, c *Confirmed) attempt.Attempt[EventRef] {
	if w.calendar == nil {
		w.log.Warn("calendar not configured, skipping event")
		return attempt.Skipped[EventRef]()
	}
	ev := Event{
		Summary:       fmt.Sprintf("Fit Call - %s (%s)", req.FullName(), req.ClinicName),
		Description:   describe(req, c.MeetingJoinURL),
		Start:         c.Start,
		End:           c.End,
		TimeZone:      w.location.String(),
		AttendeeEmail: req.Email,
		AttendeeName:  req.FullName(),
		Reminders:     DefaultOverrides,
	}
	if c.Meeting.OK() {
		ev.JoinURL = c.Meeting.Value.JoinURL
	}

	a := attempt.Try(func() (EventRef, error) {
		return w.calendar.InsertEvent(ctx, ev)
	})
	if !a.OK() {
		a.Err = apperrors.Provisioning("calendar event", a.Err)
		w.log.Warn("calendar event failed", zap.Error(a.Err))
	}
	return a
}

func describe(req Request, joinURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fit Call with %s\n\n", req.FullName())
	fmt.Fprintf(&b, "Clinic: %s\nEmail: %s\nPhone: %s\n\n", req.ClinicName, req.Email, req.Phone)
	if joinURL != "" {
		fmt.Fprintf(&b, "Zoom Link: %s\n", joinURL)
	} else {
		b.WriteString("Zoom link will be added separately\n")
	}
	b.WriteString("\n---\nAction Required: Please reply to the confirmation email with:\n")
	b.WriteString("- Your best guess at current monthly revenue\n")
	b.WriteString("- How many active patients are in your EMR")
	if src := req.Attribution.UTMSource; src != "" {
		fmt.Fprintf(&b, "\n\nSource: %s", src)
		if req.Attribution.UTMCampaign != "" {
			fmt.Fprintf(&b, " / %s", req.Attribution.UTMCampaign)
		}
	}
	return b.String()
}
