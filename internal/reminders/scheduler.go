package reminders

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"booking-service/internal/apperrors"
	"booking-service/internal/attempt"
)

// Message is one outbound email. A nil SendAt means deliver now.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	HTML    string
	Text    string
	SendAt  *time.Time
}

// Mailer hands a message to the delivery provider and returns its id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Booking is the part of a confirmed booking the reminders need.
type Booking struct {
	Email     string
	FirstName string
	Start     time.Time
	JoinURL   string
}

type Result struct {
	Kind      Kind
	SendAt    time.Time
	Immediate bool
	Delivery  attempt.Attempt[string]
}

type Scheduler struct {
	Mailer          Mailer
	Location        *time.Location
	TimezoneLabel   string
	SenderName      string
	RescheduleLink  string
	FallbackJoinURL string
	Now             func() time.Time
	Log             *zap.Logger
}

func (s *Scheduler) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *Scheduler) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Schedule issues one delivery attempt per plan step. Attempts run
// concurrently and never affect each other; the result always has one entry
// per step, in plan order.
func (s *Scheduler) Schedule(ctx context.Context, b Booking) []Result {
	start := b.Start.In(s.location())
	now := s.now()
	data := TemplateData{
		FirstName:      b.FirstName,
		Date:           start,
		TimeSlot:       start.Format("3:04 PM"),
		TimeZone:       s.TimezoneLabel,
		JoinURL:        b.JoinURL,
		RescheduleLink: s.RescheduleLink,
		SenderName:     s.SenderName,
	}
	if data.JoinURL == "" {
		data.JoinURL = s.FallbackJoinURL
	}

	results := make([]Result, len(Plan))
	var g errgroup.Group
	for i, step := range Plan {
		i, step := i, step
		at, scheduled := step.SendAt(start, now)
		results[i] = Result{Kind: step.Kind, SendAt: at, Immediate: !scheduled}

		g.Go(func() error {
			results[i].Delivery = s.dispatch(ctx, step.Kind, b.Email, data, at, scheduled)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) dispatch(ctx context.Context, kind Kind, to string, data TemplateData, at time.Time, scheduled bool) attempt.Attempt[string] {
	if s.Mailer == nil {
		s.logger().Warn("reminder skipped, mailer not configured", zap.String("kind", string(kind)))
		return attempt.Skipped[string]()
	}

	content, err := Render(kind, data)
	if err != nil {
		return s.failed(kind, err)
	}

	msg := Message{
		Kind:    kind,
		To:      to,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
	}
	if scheduled {
		msg.SendAt = &at
	}

	id, err := s.Mailer.Send(ctx, msg)
	if err != nil {
		return s.failed(kind, err)
	}
	s.logger().Info("reminder scheduled",
		zap.String("kind", string(kind)),
		zap.Time("send_at", at),
		zap.String("delivery_id", id),
	)
	return attempt.Attempt[string]{Value: id}
}

func (s *Scheduler) failed(kind Kind, err error) attempt.Attempt[string] {
	appErr := apperrors.Delivery(string(kind), err)
	s.logger().Warn("reminder delivery failed", zap.String("kind", string(kind)), zap.Error(appErr))
	return attempt.Attempt[string]{Err: appErr}
}
