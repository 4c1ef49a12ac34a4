package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"booking-service/internal/booking"
	"booking-service/internal/reminders"
)

type Ledger struct {
	db    *DB
	newID func() uuid.UUID
}

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db, newID: uuid.New}
}

type dispatchRow struct {
	Kind       string
	SendAt     time.Time
	Immediate  bool
	DeliveryID *string
	Error      *string
}

func dispatchRows(results []reminders.Result) []dispatchRow {
	rows := make([]dispatchRow, 0, len(results))
	for _, r := range results {
		row := dispatchRow{Kind: string(r.Kind), SendAt: r.SendAt, Immediate: r.Immediate}
		if r.Delivery.OK() {
			id := r.Delivery.Value
			row.DeliveryID = &id
		} else {
			msg := r.Delivery.Err.Error()
			row.Error = &msg
		}
		rows = append(rows, row)
	}
	return rows
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RecordBooking stores a confirmed booking with the outcome of each reminder.
func (l *Ledger) RecordBooking(ctx context.Context, req booking.Request, c *booking.Confirmed, sent []reminders.Result) error {
	attribution, err := json.Marshal(req.Attribution)
	if err != nil {
		return err
	}
	id := l.newID()

	return l.db.InTx(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, `INSERT INTO bookings
			(id, start_at, end_at, first_name, last_name, email, clinic_name, phone,
			 meeting_id, meeting_join_url, calendar_event_id, calendar_event_link, attribution)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			id, c.Start.UTC(), c.End.UTC(), req.FirstName, req.LastName, req.Email, req.ClinicName, req.Phone,
			nullable(c.MeetingID), nullable(c.MeetingJoinURL), nullable(c.CalendarEventID), nullable(c.CalendarEventLink),
			attribution)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		for _, r := range dispatchRows(sent) {
			_, err := q.Exec(ctx, `INSERT INTO reminder_dispatches
				(booking_id, kind, send_at, immediate, delivery_id, error)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				id, r.Kind, r.SendAt.UTC(), r.Immediate, r.DeliveryID, r.Error)
			if err != nil {
				return fmt.Errorf("insert reminder %s: %w", r.Kind, err)
			}
		}
		return nil
	})
}
