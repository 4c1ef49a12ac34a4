package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-service/internal/apperrors"
	"booking-service/internal/attribution"
	"booking-service/internal/booking"
	"booking-service/internal/schedule"
)

const bookedMessage = "Booking confirmed! Calendar invite sent to your email."

type slotJSON struct {
	DateTime        string `json:"dateTime"`
	DisplayTime     string `json:"displayTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Available       bool   `json:"available"`
}

type availabilityResponse struct {
	BookedSlots   []string               `json:"bookedSlots"`
	BusinessHours *schedule.OpenInterval `json:"businessHours"`
	Slots         []slotJSON             `json:"slots"`
	Timezone      string                 `json:"timezone"`
}

// GET /api/calendar/availability?date=YYYY-MM-DD
func (a *App) AvailabilityHandler(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		a.respondError(c, apperrors.Validation("Date parameter is required", nil))
		return
	}
	date, err := schedule.ParseDate(raw, a.Planner.Zone())
	if err != nil {
		a.respondError(c, apperrors.Validation(err.Error(), map[string]any{"date": raw}))
		return
	}

	day := a.Planner.Day(c.Request.Context(), date)

	resp := availabilityResponse{
		BookedSlots:   day.Booked,
		BusinessHours: day.Hours,
		Slots:         make([]slotJSON, 0, len(day.Slots)),
		Timezone:      a.Config.TimezoneLabel,
	}
	if resp.BookedSlots == nil {
		resp.BookedSlots = []string{}
	}
	for _, s := range day.Slots {
		resp.Slots = append(resp.Slots, slotJSON{
			DateTime:        s.Key(),
			DisplayTime:     s.Start.Format("3:04 PM"),
			DurationMinutes: int(s.Duration.Minutes()),
			Available:       s.Available,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// bookBody is the booking form plus any campaign fields the page forwarded.
type bookBody struct {
	booking.Request
	attribution.Params
}

// POST /api/calendar/book
func (a *App) BookHandler(c *gin.Context) {
	var body bookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.respondError(c, apperrors.Validation("Invalid request body", map[string]any{"body": err.Error()}))
		return
	}
	ctx := c.Request.Context()

	req := body.Request
	req.Attribution = body.Params
	if sid, ok := a.Sessions.ID(c.Request); ok {
		req.Attribution = a.Attribution.Lookup(ctx, sid).Merge(body.Params)
	}

	out, err := a.Bookings.Book(ctx, req)
	if err != nil {
		a.respondError(c, err)
		return
	}

	resp := gin.H{"success": true, "message": bookedMessage}
	if id := out.Confirmed.CalendarEventID; id != "" {
		resp["eventId"] = id
	}
	if link := out.Confirmed.CalendarEventLink; link != "" {
		resp["eventLink"] = link
	}
	if join := out.Confirmed.MeetingJoinURL; join != "" {
		resp["meetingJoinUrl"] = join
	}
	c.JSON(http.StatusCreated, resp)
}

// GET /api/attribution?page=...&referrer=...&utm_source=...
// Records the visit against the session cookie and returns the merged view.
func (a *App) AttributionHandler(c *gin.Context) {
	touch := attribution.Touch{
		Query:       c.Request.URL.Query(),
		LandingPage: c.Query("page"),
		Referrer:    c.Query("referrer"),
	}
	if touch.Referrer == "" {
		touch.Referrer = c.Request.Referer()
	}

	sid, err := a.Sessions.Ensure(c)
	if err != nil {
		a.Log.Warn("session cookie failed", zap.Error(err))
		sid = ""
	}
	c.JSON(http.StatusOK, a.Attribution.Capture(c.Request.Context(), sid, touch))
}

// respondError maps err onto a status. Server-side failures are logged with
// the request id; the client only ever sees the AppError message.
func (a *App) respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError && appErr.Code != apperrors.CodeUnavailable {
		a.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
	}
	abortWithError(c, appErr)
}

func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	body := gin.H{"success": false, "error": appErr.Message, "code": appErr.Code}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, body)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
