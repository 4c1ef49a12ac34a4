package booking

import (
	"context"

	"go.uber.org/zap"

	"booking-service/internal/apperrors"
	"booking-service/internal/reminders"
)

// Ledger keeps an append-only record of bookings. It never feeds availability.
type Ledger interface {
	RecordBooking(ctx context.Context, req Request, c *Confirmed, sent []reminders.Result) error
}

type ReminderScheduler interface {
	Schedule(ctx context.Context, b reminders.Booking) []reminders.Result
}

type Outcome struct {
	Confirmed *Confirmed
	Reminders []reminders.Result
}

// Flow runs a booking end to end: write, remind, record.
type Flow struct {
	Writer    *Writer
	Reminders ReminderScheduler
	Ledger    Ledger
	Log       *zap.Logger
}

func (f *Flow) logger() *zap.Logger {
	if f.Log == nil {
		return zap.NewNop()
	}
	return f.Log
}

func (f *Flow) Book(ctx context.Context, req Request) (*Outcome, error) {
	req.normalize()
	confirmed, err := f.Writer.Create(ctx, req)
	if err != nil {
		if apperrors.IsValidation(err) {
			f.logger().Info("booking rejected", zap.Error(err))
		} else {
			f.logger().Error("booking failed", zap.Error(err))
		}
		return nil, err
	}
	out := &Outcome{Confirmed: confirmed}

	if f.Reminders != nil {
		out.Reminders = f.Reminders.Schedule(ctx, reminders.Booking{
			Email:     req.Email,
			FirstName: req.FirstName,
			Start:     confirmed.Start,
			JoinURL:   confirmed.MeetingJoinURL,
		})
	}

	if f.Ledger != nil {
		if err := f.Ledger.RecordBooking(ctx, req, confirmed, out.Reminders); err != nil {
			f.logger().Warn("booking ledger write failed", zap.Error(err))
		}
	}
	return out, nil
}
