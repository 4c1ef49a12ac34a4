package zoom

import (
	"context"
	"strconv"
	"time"

	"booking-service/internal/booking"
)

// Provider exposes a Client as the booking flow's meeting provider.
type Provider struct {
	Client *Client
}

func (p Provider) CreateMeeting(ctx context.Context, topic string, start time.Time, duration time.Duration) (booking.Meeting, error) {
	m, err := p.Client.CreateMeeting(ctx, topic, start, duration)
	if err != nil {
		return booking.Meeting{}, err
	}
	return booking.Meeting{ID: strconv.FormatInt(m.ID, 10), JoinURL: m.JoinURL}, nil
}
