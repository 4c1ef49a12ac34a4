package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"booking-service/internal/app"
	"booking-service/internal/attribution"
	"booking-service/internal/booking"
	"booking-service/internal/config"
	"booking-service/internal/content"
	"booking-service/internal/gcal"
	"booking-service/internal/logging"
	"booking-service/internal/mail"
	"booking-service/internal/reminders"
	"booking-service/internal/schedule"
	"booking-service/internal/store"
	"booking-service/internal/zoom"
)

// runtime owns the process-wide resources every command shares.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *store.DB
	redis   *redis.Client
	queue   *asynq.Client
	closers []func()
}

func bootstrap() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log}
	rt.closers = append(rt.closers, func() { _ = log.Sync() })
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// openDB connects and migrates. A missing DATABASE_URL leaves rt.db nil.
func (rt *runtime) openDB(ctx context.Context) error {
	if rt.cfg.DatabaseURL == "" {
		rt.log.Warn("DATABASE_URL not set, booking ledger and blog disabled")
		return nil
	}
	db, err := store.Open(ctx, rt.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, db.Close)

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.db = db
	return nil
}

// openRedis connects the attribution store and, in queue mode, the reminder
// queue. A missing REDIS_ADDR leaves both nil.
func (rt *runtime) openRedis(ctx context.Context) error {
	if rt.cfg.RedisAddr == "" {
		rt.log.Warn("REDIS_ADDR not set, attribution kept in memory")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rt.cfg.RedisAddr,
		Password: rt.cfg.RedisPassword,
		DB:       rt.cfg.RedisSessionDB,
	})
	rt.closers = append(rt.closers, func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	rt.redis = client

	if rt.cfg.ReminderDelivery == config.DeliveryQueue {
		q := asynq.NewClient(rt.queueOpt())
		rt.closers = append(rt.closers, func() { _ = q.Close() })
		rt.queue = q
	}
	return nil
}

func (rt *runtime) queueOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     rt.cfg.RedisAddr,
		Password: rt.cfg.RedisPassword,
		DB:       rt.cfg.RedisQueueDB,
	}
}

// providerMailer is the Resend mailer, or nil without an API key.
func (rt *runtime) providerMailer() reminders.Mailer {
	if rt.cfg.ResendAPIKey == "" {
		return nil
	}
	return mail.NewResendMailer(rt.cfg.ResendAPIKey, rt.cfg.EmailFrom, rt.cfg.EmailReplyTo)
}

func (rt *runtime) reminderMailer() reminders.Mailer {
	if rt.queue != nil {
		return mail.NewQueueMailer(rt.queue)
	}
	m := rt.providerMailer()
	if m == nil {
		rt.log.Warn("RESEND_API_KEY not set, reminders will not be sent")
	}
	return m
}

func (rt *runtime) calendar(ctx context.Context) (*gcal.Client, error) {
	if !rt.cfg.CalendarConfigured() {
		rt.log.Warn("Google Calendar not configured, availability fails open and no events are written")
		return nil, nil
	}
	return gcal.New(ctx, rt.cfg.GoogleClientEmail, rt.cfg.GooglePrivateKeyPEM(), rt.cfg.GoogleCalendarID, rt.cfg.Location())
}

func (rt *runtime) meetings(ctx context.Context) booking.MeetingProvider {
	if rt.cfg.ZoomAccessToken == "" {
		rt.log.Warn("ZOOM_ACCESS_TOKEN not set, bookings use the fallback meeting link")
		return nil
	}
	return zoom.Provider{Client: zoom.NewClient(ctx, rt.cfg.ZoomAccessToken)}
}

// contentService is nil unless the database is up.
func (rt *runtime) contentService(ctx context.Context) (*content.Service, error) {
	if rt.db == nil {
		return nil, nil
	}
	svc := &content.Service{
		Repo:        store.NewPostStore(rt.db),
		SiteBaseURL: rt.cfg.SiteBaseURL,
		Author:      rt.cfg.SenderName,
		Log:         rt.log.Named("content"),
	}
	if rt.cfg.GeminiAPIKey != "" {
		llm, err := content.NewGeminiGenerator(ctx, rt.cfg.GeminiAPIKey, rt.cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = llm.Close() })
		svc.Pipeline = &content.Pipeline{LLM: llm, Log: svc.Log}
		if rt.cfg.GeminiImageModel != "" {
			svc.Images = llm.Imager(rt.cfg.GeminiImageModel)
		}
	}
	if m := rt.providerMailer(); m != nil {
		svc.Notifier = mail.NewReviewNotifier(m, rt.cfg.ReviewRecipient())
	}
	if rt.cfg.JWTSecret != "" {
		svc.Links = content.NewReviewLinks(rt.cfg.JWTSecret, rt.cfg.PublicURL(), rt.cfg.ReviewLinkTTL)
	}
	if rt.cfg.LinkedInAccessToken != "" && rt.cfg.LinkedInAuthorURN != "" {
		svc.Sharer = content.NewLinkedInPoster(ctx, rt.cfg.LinkedInAccessToken, rt.cfg.LinkedInAuthorURN)
	}
	return svc, nil
}

func (rt *runtime) requireContent(ctx context.Context) (*content.Service, error) {
	if err := rt.openDB(ctx); err != nil {
		return nil, err
	}
	svc, err := rt.contentService(ctx)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, errors.New("blog requires DATABASE_URL")
	}
	return svc, nil
}

// buildApp wires the HTTP application from the runtime's resources.
func (rt *runtime) buildApp(ctx context.Context) (*app.App, error) {
	cfg := rt.cfg
	loc := cfg.Location()

	cal, err := rt.calendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	var busy schedule.BusyReader
	var events booking.EventWriter
	if cal != nil {
		busy, events = cal, cal
	}

	planner := &schedule.Planner{
		Calendar:   busy,
		Hours:      schedule.DefaultBusinessHours,
		Cadence:    cfg.SlotCadence(),
		SlotLength: cfg.SlotLength(),
		Horizon:    cfg.BookingHorizonDays,
		Location:   loc,
		Log:        rt.log.Named("availability"),
	}

	flow := &booking.Flow{
		Writer: booking.NewWriter(rt.meetings(ctx), events, loc, cfg.SessionLength(), cfg.ZoomFallbackJoinURL, rt.log.Named("booking")),
		Reminders: &reminders.Scheduler{
			Mailer:          rt.reminderMailer(),
			Location:        loc,
			TimezoneLabel:   cfg.TimezoneLabel,
			SenderName:      cfg.SenderName,
			RescheduleLink:  cfg.RescheduleLink,
			FallbackJoinURL: cfg.ZoomFallbackJoinURL,
			Log:             rt.log.Named("reminders"),
		},
		Log: rt.log.Named("booking"),
	}
	if rt.db != nil {
		flow.Ledger = store.NewLedger(rt.db)
	}

	var sessions attribution.Store = attribution.NewMemoryStore()
	if rt.redis != nil {
		sessions = attribution.NewRedisStore(rt.redis, cfg.AttributionTTL)
	}

	svc, err := rt.contentService(ctx)
	if err != nil {
		return nil, err
	}

	a := &app.App{
		Config:      cfg,
		Planner:     planner,
		Bookings:    flow,
		Attribution: &attribution.Capturer{Store: sessions, Log: rt.log.Named("attribution")},
		Sessions: app.NewSessionManager([]byte(cfg.CookieHashKey), []byte(cfg.CookieBlockKey),
			cfg.IsProduction(), int(cfg.AttributionTTL.Seconds())),
		Log: rt.log,
	}
	if svc != nil {
		a.Content = svc
	}
	if cfg.LinkedInClientID != "" && cfg.LinkedInClientSecret != "" {
		a.LinkedIn = content.NewLinkedInAuth(cfg.LinkedInClientID, cfg.LinkedInClientSecret, cfg.LinkedInRedirectURL)
	}
	return a, nil
}
