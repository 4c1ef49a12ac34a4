package reminders

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "time/tzdata"

	"booking-service/internal/apperrors"
	"booking-service/internal/attempt"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	fail map[Kind]error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[msg.Kind]; err != nil {
		return "", err
	}
	m.sent = append(m.sent, msg)
	return "id-" + string(msg.Kind), nil
}

func newScheduler(t *testing.T, mailer Mailer, now time.Time) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return &Scheduler{
		Mailer:          mailer,
		Location:        loc,
		TimezoneLabel:   "EST",
		SenderName:      "Ben Wiebe",
		RescheduleLink:  "https://example.com/reschedule",
		FallbackJoinURL: "https://zoom.us/j/fallback",
		Now:             func() time.Time { return now },
		Log:             zap.NewNop(),
	}
}

func TestSchedule_FiveAttemptsWithOffsets(t *testing.T) {
	mailer := &fakeMailer{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newScheduler(t, mailer, now)
	start := time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)

	results := s.Schedule(context.Background(), Booking{Email: "j@x.com", FirstName: "Jane", Start: start, JoinURL: "https://zoom.us/j/1"})

	require.Len(t, results, 5)
	require.Len(t, mailer.sent, 5)

	want := []struct {
		kind Kind
		at   time.Time
	}{
		{Immediate, now},
		{ThreeDaysBefore, start.Add(-72 * time.Hour)},
		{OneDayBefore, start.Add(-24 * time.Hour)},
		{SixHoursBefore, start.Add(-6 * time.Hour)},
		{OneHourBefore, start.Add(-time.Hour)},
	}
	for i, w := range want {
		assert.Equal(t, w.kind, results[i].Kind)
		assert.True(t, w.at.Equal(results[i].SendAt), "send time for %s", w.kind)
		assert.True(t, results[i].Delivery.OK())
		assert.Equal(t, "id-"+string(w.kind), results[i].Delivery.Value)
	}
	assert.True(t, results[0].Immediate)

	byKind := map[Kind]Message{}
	for _, m := range mailer.sent {
		byKind[m.Kind] = m
	}
	assert.Nil(t, byKind[Immediate].SendAt)
	require.NotNil(t, byKind[OneHourBefore].SendAt)
	assert.True(t, start.Add(-time.Hour).Equal(*byKind[OneHourBefore].SendAt))
	assert.Equal(t, "j@x.com", byKind[OneHourBefore].To)
}

func TestSchedule_ElapsedTimesSendImmediately(t *testing.T) {
	mailer := &fakeMailer{}
	start := time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)
	now := start.Add(-2 * time.Hour)
	s := newScheduler(t, mailer, now)

	results := s.Schedule(context.Background(), Booking{Email: "j@x.com", FirstName: "Jane", Start: start})

	require.Len(t, results, 5)
	immediate := 0
	for _, r := range results {
		if r.Immediate {
			immediate++
		}
	}
	// confirmation, 3 days, 1 day and 6 hours are all in the past
	assert.Equal(t, 4, immediate)
	assert.False(t, results[4].Immediate)

	var kinds []string
	for _, m := range mailer.sent {
		if m.SendAt == nil {
			kinds = append(kinds, string(m.Kind))
		}
	}
	sort.Strings(kinds)
	assert.Equal(t, []string{"immediate_confirmation", "one_day_before", "six_hours_before", "three_days_before"}, kinds)
}

func TestSchedule_OneFailureDoesNotStopOthers(t *testing.T) {
	mailer := &fakeMailer{fail: map[Kind]error{OneDayBefore: errors.New("resend: 429")}}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newScheduler(t, mailer, now)

	results := s.Schedule(context.Background(), Booking{Email: "j@x.com", FirstName: "Jane", Start: now.Add(10 * 24 * time.Hour)})

	require.Len(t, results, 5)
	assert.Len(t, mailer.sent, 4)
	for _, r := range results {
		if r.Kind == OneDayBefore {
			require.Error(t, r.Delivery.Err)
			appErr := apperrors.As(r.Delivery.Err)
			assert.Equal(t, apperrors.CodeDelivery, appErr.Code)
			continue
		}
		assert.True(t, r.Delivery.OK(), string(r.Kind))
	}
}

func TestSchedule_NoMailer(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newScheduler(t, nil, now)

	results := s.Schedule(context.Background(), Booking{Email: "j@x.com", Start: now.Add(time.Hour * 48)})
	require.Len(t, results, 5)
	for _, r := range results {
		assert.ErrorIs(t, r.Delivery.Err, attempt.ErrNotConfigured)
	}
}

func TestSchedule_FallbackJoinURL(t *testing.T) {
	mailer := &fakeMailer{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newScheduler(t, mailer, now)

	s.Schedule(context.Background(), Booking{Email: "j@x.com", FirstName: "Jane", Start: now.Add(96 * time.Hour)})
	for _, m := range mailer.sent {
		assert.Contains(t, m.Text, "https://zoom.us/j/fallback")
	}
}

func TestRender(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	data := TemplateData{
		FirstName:      "Jane",
		Date:           time.Date(2025, 1, 9, 14, 30, 0, 0, loc),
		TimeSlot:       "2:30 PM",
		TimeZone:       "EST",
		JoinURL:        "https://zoom.us/j/123",
		RescheduleLink: "https://example.com/r",
		SenderName:     "Ben Wiebe",
	}

	tests := []struct {
		kind    Kind
		subject string
	}{
		{Immediate, "You're booked: Fit Call on Thursday"},
		{ThreeDaysBefore, "Quick prep before our call on Thursday"},
		{OneDayBefore, "Confirming our call tomorrow at 2:30 PM EST"},
		{SixHoursBefore, "Still good for 2:30 PM EST today?"},
		{OneHourBefore, "Starting in 60 minutes"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := Render(tt.kind, data)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, got.Subject)
			assert.Contains(t, got.HTML, `href="https://zoom.us/j/123"`)
			assert.Contains(t, got.Text, "https://zoom.us/j/123")
			assert.Contains(t, got.HTML, "automated reminder")
			assert.False(t, strings.Contains(got.Text, "<p>"))
		})
	}

	t.Run("escapes html", func(t *testing.T) {
		d := data
		d.FirstName = "<script>"
		got, err := Render(Immediate, d)
		require.NoError(t, err)
		assert.NotContains(t, got.HTML, "<script>")
		assert.Contains(t, got.Text, "<script>")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Render(Kind("nope"), data)
		assert.Error(t, err)
	})
}

func TestSchedule_ZeroValueDefaults(t *testing.T) {
	mailer := &fakeMailer{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Scheduler{Mailer: mailer, Now: func() time.Time { return now }}

	var results []Result
	require.NotPanics(t, func() {
		results = s.Schedule(context.Background(), Booking{
			Email: "j@x.com", FirstName: "Jane", Start: time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC), JoinURL: "https://zoom.us/j/1",
		})
	})
	require.Len(t, results, 5)
	for _, r := range results {
		assert.NoError(t, r.Delivery.Err, r.Kind)
	}
	require.Len(t, mailer.sent, 5)
	for _, m := range mailer.sent {
		if m.Kind == Immediate {
			assert.Contains(t, m.Text, "3:00 PM")
		}
	}
}
