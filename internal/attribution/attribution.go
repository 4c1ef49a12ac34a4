package attribution

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

const (
	KeyUTMSource             = "utm_source"
	KeyUTMMedium             = "utm_medium"
	KeyUTMCampaign           = "utm_campaign"
	KeyUTMTerm               = "utm_term"
	KeyUTMContent            = "utm_content"
	KeyFirstTouchLandingPage = "first_touch_landing_page"
	KeyFirstTouchReferrer    = "first_touch_referrer"
)

var campaignKeys = []string{KeyUTMMedium, KeyUTMCampaign, KeyUTMTerm, KeyUTMContent}

// Params is the marketing metadata passed through to a booking.
type Params struct {
	UTMSource             string `json:"utm_source,omitempty"`
	UTMMedium             string `json:"utm_medium,omitempty"`
	UTMCampaign           string `json:"utm_campaign,omitempty"`
	UTMTerm               string `json:"utm_term,omitempty"`
	UTMContent            string `json:"utm_content,omitempty"`
	FirstTouchLandingPage string `json:"first_touch_landing_page,omitempty"`
	FirstTouchReferrer    string `json:"first_touch_referrer,omitempty"`
	SessionLandingPage    string `json:"session_landing_page,omitempty"`
	SessionReferrer       string `json:"session_referrer,omitempty"`
}

// Merge fills every empty field of p from fallback.
func (p Params) Merge(fallback Params) Params {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Params{
		UTMSource:             pick(p.UTMSource, fallback.UTMSource),
		UTMMedium:             pick(p.UTMMedium, fallback.UTMMedium),
		UTMCampaign:           pick(p.UTMCampaign, fallback.UTMCampaign),
		UTMTerm:               pick(p.UTMTerm, fallback.UTMTerm),
		UTMContent:            pick(p.UTMContent, fallback.UTMContent),
		FirstTouchLandingPage: pick(p.FirstTouchLandingPage, fallback.FirstTouchLandingPage),
		FirstTouchReferrer:    pick(p.FirstTouchReferrer, fallback.FirstTouchReferrer),
		SessionLandingPage:    pick(p.SessionLandingPage, fallback.SessionLandingPage),
		SessionReferrer:       pick(p.SessionReferrer, fallback.SessionReferrer),
	}
}

func (p Params) Empty() bool {
	return p == Params{}
}

func (p *Params) set(key, value string) {
	switch key {
	case KeyUTMSource:
		p.UTMSource = value
	case KeyUTMMedium:
		p.UTMMedium = value
	case KeyUTMCampaign:
		p.UTMCampaign = value
	case KeyUTMTerm:
		p.UTMTerm = value
	case KeyUTMContent:
		p.UTMContent = value
	case KeyFirstTouchLandingPage:
		p.FirstTouchLandingPage = value
	case KeyFirstTouchReferrer:
		p.FirstTouchReferrer = value
	}
}

// FromQuery reads the campaign parameters present on a URL query.
func FromQuery(q url.Values) Params {
	var p Params
	for _, k := range append([]string{KeyUTMSource}, campaignKeys...) {
		p.set(k, q.Get(k))
	}
	return p
}

// Touch is one page view as seen by the visitor's browser.
type Touch struct {
	Query       url.Values
	LandingPage string
	Referrer    string
}

// Capturer keeps first-touch attribution per visitor session.
type Capturer struct {
	Store Store
	Log   *zap.Logger
}

// Capture records first-touch data for session and returns the merged view:
// stored first-touch values win over what the current page carries. Store
// failures degrade to the current page's values.
func (c *Capturer) Capture(ctx context.Context, session string, touch Touch) Params {
	current := FromQuery(touch.Query)
	current.SessionLandingPage = touch.LandingPage
	current.SessionReferrer = touch.Referrer

	if c.Store == nil || session == "" {
		current.FirstTouchLandingPage = touch.LandingPage
		current.FirstTouchReferrer = touch.Referrer
		return current
	}

	c.setIfAbsent(ctx, session, KeyFirstTouchLandingPage, touch.LandingPage)
	c.setIfAbsent(ctx, session, KeyFirstTouchReferrer, touch.Referrer)

	// campaign params are only taken from the first visit that carries a source
	if current.UTMSource != "" && c.setIfAbsent(ctx, session, KeyUTMSource, current.UTMSource) {
		for _, k := range campaignKeys {
			c.setIfAbsent(ctx, session, k, touch.Query.Get(k))
		}
	}

	stored := c.Lookup(ctx, session)
	stored.SessionLandingPage = current.SessionLandingPage
	stored.SessionReferrer = current.SessionReferrer
	return stored.Merge(current)
}

// Lookup returns whatever first-touch data is stored for session.
func (c *Capturer) Lookup(ctx context.Context, session string) Params {
	var p Params
	if c.Store == nil || session == "" {
		return p
	}
	keys := append([]string{KeyUTMSource, KeyFirstTouchLandingPage, KeyFirstTouchReferrer}, campaignKeys...)
	for _, k := range keys {
		v, ok, err := c.Store.Get(ctx, session, k)
		if err != nil {
			c.Log.Warn("attribution lookup failed", zap.String("key", k), zap.Error(err))
			continue
		}
		if ok {
			p.set(k, v)
		}
	}
	return p
}

func (c *Capturer) setIfAbsent(ctx context.Context, session, key, value string) bool {
	if value == "" {
		return false
	}
	stored, err := c.Store.SetIfAbsent(ctx, session, key, value)
	if err != nil {
		c.Log.Warn("attribution store failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return stored
}
