// Package app is the HTTP boundary: availability, booking, attribution and
// the blog admin surface, served with gin.
package app

import (
	"context"

	"go.uber.org/zap"

	"booking-service/internal/attribution"
	"booking-service/internal/booking"
	"booking-service/internal/config"
	"booking-service/internal/content"
	"booking-service/internal/schedule"
)

// App holds every handler dependency. Content and LinkedIn are nil when the
// blog pipeline is not configured; their routes then answer 503.
type App struct {
	Config      *config.Config
	Planner     *schedule.Planner
	Bookings    *booking.Flow
	Attribution *attribution.Capturer
	Sessions    *SessionManager
	Content     *content.Service
	LinkedIn    LinkedInOAuth
	Log         *zap.Logger
}

// LinkedInOAuth is the code flow behind the LinkedIn connect routes.
type LinkedInOAuth interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*content.LinkedInCredentials, error)
}
