package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	DeliveryProvider = "provider"
	DeliveryQueue    = "queue"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Booking grid. Displayed slot length and reserved session length are
	// independent: slots are advertised as 30 minutes, meetings hold 45.
	Timezone           string `mapstructure:"TIMEZONE"`
	TimezoneLabel      string `mapstructure:"TIMEZONE_LABEL"`
	SlotCadenceMinutes int    `mapstructure:"SLOT_CADENCE_MINUTES"`
	SlotDisplayMinutes int    `mapstructure:"SLOT_DISPLAY_MINUTES"`
	SessionMinutes     int    `mapstructure:"SESSION_MINUTES"`
	BookingHorizonDays int    `mapstructure:"BOOKING_HORIZON_DAYS"`

	// Google Calendar service account.
	GoogleClientEmail string `mapstructure:"GOOGLE_CLIENT_EMAIL"`
	GooglePrivateKey  string `mapstructure:"GOOGLE_PRIVATE_KEY"`
	GoogleCalendarID  string `mapstructure:"GOOGLE_CALENDAR_ID"`

	ZoomAccessToken     string `mapstructure:"ZOOM_ACCESS_TOKEN"`
	ZoomFallbackJoinURL string `mapstructure:"ZOOM_FALLBACK_JOIN_URL"`

	// Outbound mail.
	ResendAPIKey     string `mapstructure:"RESEND_API_KEY"`
	EmailFrom        string `mapstructure:"EMAIL_FROM"`
	EmailReplyTo     string `mapstructure:"EMAIL_REPLY_TO"`
	ReminderDelivery string `mapstructure:"REMINDER_DELIVERY"`
	SenderName       string `mapstructure:"SENDER_NAME"`
	RescheduleLink   string `mapstructure:"RESCHEDULE_LINK"`

	// Redis: attribution sessions and the reminder queue.
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int           `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int           `mapstructure:"REDIS_QUEUE_DB"`
	AttributionTTL time.Duration `mapstructure:"ATTRIBUTION_TTL"`
	CookieHashKey  string        `mapstructure:"COOKIE_HASH_KEY"`
	CookieBlockKey string        `mapstructure:"COOKIE_BLOCK_KEY"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret    string `mapstructure:"JWT_HMAC_SECRET"`
	StaticTokens string `mapstructure:"STATIC_TOKENS"`

	GeminiAPIKey     string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string `mapstructure:"GEMINI_MODEL"`
	GeminiImageModel string `mapstructure:"GEMINI_IMAGE_MODEL"`

	// Draft review mail. Links in it are signed with JWT_HMAC_SECRET.
	BlogReviewEmail string        `mapstructure:"BLOG_REVIEW_EMAIL"`
	ReviewLinkTTL   time.Duration `mapstructure:"REVIEW_LINK_TTL"`

	LinkedInClientID     string `mapstructure:"LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret string `mapstructure:"LINKEDIN_CLIENT_SECRET"`
	LinkedInRedirectURL  string `mapstructure:"LINKEDIN_REDIRECT_URL"`
	LinkedInAccessToken  string `mapstructure:"LINKEDIN_ACCESS_TOKEN"`
	LinkedInAuthorURN    string `mapstructure:"LINKEDIN_AUTHOR_URN"`

	SiteBaseURL        string `mapstructure:"SITE_BASE_URL"`
	APIBaseURL         string `mapstructure:"API_BASE_URL"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMin    int    `mapstructure:"RATE_LIMIT_PER_MIN"`
}

var defaults = map[string]any{
	"APP_PORT":  "8080",
	"ENV":       "development",
	"LOG_LEVEL": "info",

	"TIMEZONE":             "America/New_York",
	"TIMEZONE_LABEL":       "EST",
	"SLOT_CADENCE_MINUTES": 30,
	"SLOT_DISPLAY_MINUTES": 30,
	"SESSION_MINUTES":      45,
	"BOOKING_HORIZON_DAYS": 14,

	"GOOGLE_CLIENT_EMAIL": "",
	"GOOGLE_PRIVATE_KEY":  "",
	"GOOGLE_CALENDAR_ID":  "primary",

	"ZOOM_ACCESS_TOKEN":      "",
	"ZOOM_FALLBACK_JOIN_URL": "",

	"RESEND_API_KEY":    "",
	"EMAIL_FROM":        "Wiebe Consulting <ben@wiebe-consulting.com>",
	"EMAIL_REPLY_TO":    "ben@wiebe-consulting.com",
	"REMINDER_DELIVERY": DeliveryProvider,
	"SENDER_NAME":       "Ben Wiebe",
	"RESCHEDULE_LINK":   "#",

	"REDIS_ADDR":       "",
	"REDIS_PASSWORD":   "",
	"REDIS_SESSION_DB": 0,
	"REDIS_QUEUE_DB":   1,
	"ATTRIBUTION_TTL":  "720h",
	"COOKIE_HASH_KEY":  "",
	"COOKIE_BLOCK_KEY": "",

	"DATABASE_URL": "",

	"JWT_HMAC_SECRET": "",
	"STATIC_TOKENS":   "",

	"GEMINI_API_KEY": "",
	"GEMINI_MODEL":       "models/gemini-1.5-pro",
	"GEMINI_IMAGE_MODEL": "",

	"BLOG_REVIEW_EMAIL": "",
	"REVIEW_LINK_TTL":   "168h",

	"LINKEDIN_CLIENT_ID":     "",
	"LINKEDIN_CLIENT_SECRET": "",
	"LINKEDIN_REDIRECT_URL":  "",
	"LINKEDIN_ACCESS_TOKEN":  "",
	"LINKEDIN_AUTHOR_URN":    "",

	"SITE_BASE_URL":        "https://wiebe-consulting.com",
	"API_BASE_URL":         "",
	"CORS_ALLOWED_ORIGINS": "*",
	"RATE_LIMIT_PER_MIN":   20,
}

// Load reads config.yaml (if present) and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	// every key needs a default so AutomaticEnv can see it during Unmarshal
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) Validate() error {
	var problems []string

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE must be a valid IANA zone, got: %s", cfg.Timezone))
	}
	if cfg.SlotCadenceMinutes <= 0 {
		problems = append(problems, fmt.Sprintf("SLOT_CADENCE_MINUTES must be positive, got: %d", cfg.SlotCadenceMinutes))
	}
	if cfg.SlotDisplayMinutes <= 0 {
		problems = append(problems, fmt.Sprintf("SLOT_DISPLAY_MINUTES must be positive, got: %d", cfg.SlotDisplayMinutes))
	}
	if cfg.SessionMinutes <= 0 {
		problems = append(problems, fmt.Sprintf("SESSION_MINUTES must be positive, got: %d", cfg.SessionMinutes))
	}
	if cfg.BookingHorizonDays < 0 {
		problems = append(problems, fmt.Sprintf("BOOKING_HORIZON_DAYS cannot be negative, got: %d", cfg.BookingHorizonDays))
	}
	if cfg.ReminderDelivery != DeliveryProvider && cfg.ReminderDelivery != DeliveryQueue {
		problems = append(problems, fmt.Sprintf("REMINDER_DELIVERY must be one of %s|%s, got: %s", DeliveryProvider, DeliveryQueue, cfg.ReminderDelivery))
	}
	if cfg.ReminderDelivery == DeliveryQueue && cfg.RedisAddr == "" {
		problems = append(problems, "REMINDER_DELIVERY=queue requires REDIS_ADDR")
	}
	if cfg.AttributionTTL <= 0 {
		problems = append(problems, fmt.Sprintf("ATTRIBUTION_TTL must be positive, got: %s", cfg.AttributionTTL))
	}
	switch len(cfg.CookieBlockKey) {
	case 0, 16, 24, 32:
	default:
		problems = append(problems, fmt.Sprintf("COOKIE_BLOCK_KEY must be 16, 24 or 32 bytes, got: %d", len(cfg.CookieBlockKey)))
	}
	if cfg.ReviewLinkTTL <= 0 {
		problems = append(problems, fmt.Sprintf("REVIEW_LINK_TTL must be positive, got: %s", cfg.ReviewLinkTTL))
	}
	if cfg.RateLimitPerMin <= 0 {
		problems = append(problems, fmt.Sprintf("RATE_LIMIT_PER_MIN must be positive, got: %d", cfg.RateLimitPerMin))
	}

	if len(problems) > 0 {
		msg := "configuration validation failed:\n"
		for i, p := range problems {
			msg += fmt.Sprintf("  %d. %s\n", i+1, p)
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func (cfg *Config) IsProduction() bool {
	return cfg.Env == "production"
}

func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (cfg *Config) SlotCadence() time.Duration {
	return time.Duration(cfg.SlotCadenceMinutes) * time.Minute
}

func (cfg *Config) SlotLength() time.Duration {
	return time.Duration(cfg.SlotDisplayMinutes) * time.Minute
}

func (cfg *Config) SessionLength() time.Duration {
	return time.Duration(cfg.SessionMinutes) * time.Minute
}

// GooglePrivateKeyPEM undoes the escaped newlines env files usually carry.
func (cfg *Config) GooglePrivateKeyPEM() string {
	return strings.ReplaceAll(cfg.GooglePrivateKey, `\n`, "\n")
}

func (cfg *Config) CalendarConfigured() bool {
	return cfg.GoogleClientEmail != "" && cfg.GooglePrivateKey != ""
}

// PublicURL is where this API is reachable from outside, used for links in
// outgoing mail.
func (cfg *Config) PublicURL() string {
	if cfg.APIBaseURL != "" {
		return strings.TrimRight(cfg.APIBaseURL, "/")
	}
	return strings.TrimRight(cfg.SiteBaseURL, "/")
}

func (cfg *Config) ReviewRecipient() string {
	if cfg.BlogReviewEmail != "" {
		return cfg.BlogReviewEmail
	}
	return cfg.EmailReplyTo
}

func (cfg *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(cfg.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (cfg *Config) Tokens() []string {
	var out []string
	for _, t := range strings.Split(cfg.StaticTokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
