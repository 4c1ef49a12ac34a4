package attribution

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func query(t *testing.T, raw string) url.Values {
	t.Helper()
	q, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return q
}

func TestCapture_FirstTouchWins(t *testing.T) {
	ctx := context.Background()
	c := &Capturer{Store: NewMemoryStore(), Log: zap.NewNop()}

	first := c.Capture(ctx, "s1", Touch{
		Query:       query(t, "utm_source=linkedin&utm_medium=social&utm_campaign=spring"),
		LandingPage: "https://wiebe-consulting.com/?utm_source=linkedin",
		Referrer:    "https://www.linkedin.com/",
	})
	assert.Equal(t, "linkedin", first.UTMSource)
	assert.Equal(t, "social", first.UTMMedium)
	assert.Equal(t, "spring", first.UTMCampaign)
	assert.Equal(t, "https://wiebe-consulting.com/?utm_source=linkedin", first.FirstTouchLandingPage)
	assert.Equal(t, "https://www.linkedin.com/", first.FirstTouchReferrer)

	second := c.Capture(ctx, "s1", Touch{
		Query:       query(t, "utm_source=google&utm_term=pt+clinic"),
		LandingPage: "https://wiebe-consulting.com/blog",
	})
	assert.Equal(t, "linkedin", second.UTMSource)
	assert.Equal(t, "spring", second.UTMCampaign)
	assert.Equal(t, "pt clinic", second.UTMTerm, "gaps are filled from the current page")
	assert.Equal(t, "https://wiebe-consulting.com/?utm_source=linkedin", second.FirstTouchLandingPage)
	assert.Equal(t, "https://wiebe-consulting.com/blog", second.SessionLandingPage)
	assert.Empty(t, second.SessionReferrer)
}

func TestCapture_CampaignOnlyStoredWithSource(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := &Capturer{Store: store, Log: zap.NewNop()}

	c.Capture(ctx, "s2", Touch{Query: query(t, "utm_campaign=orphan"), LandingPage: "/"})

	_, ok, err := store.Get(ctx, "s2", KeyUTMCampaign)
	require.NoError(t, err)
	assert.False(t, ok)

	got := c.Lookup(ctx, "s2")
	assert.Empty(t, got.UTMCampaign)
	assert.Equal(t, "/", got.FirstTouchLandingPage)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("redis: connection refused")
}

func (failingStore) SetIfAbsent(context.Context, string, string, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestCapture_StoreFailureDegradesToCurrentPage(t *testing.T) {
	c := &Capturer{Store: failingStore{}, Log: zap.NewNop()}

	got := c.Capture(context.Background(), "s3", Touch{
		Query:       query(t, "utm_source=newsletter"),
		LandingPage: "/pricing",
	})
	assert.Equal(t, "newsletter", got.UTMSource)
	assert.Equal(t, "/pricing", got.SessionLandingPage)
}

func TestCapture_NoSession(t *testing.T) {
	c := &Capturer{Log: zap.NewNop()}
	got := c.Capture(context.Background(), "", Touch{Query: query(t, "utm_source=x"), LandingPage: "/a", Referrer: "r"})
	assert.Equal(t, Params{UTMSource: "x", FirstTouchLandingPage: "/a", FirstTouchReferrer: "r", SessionLandingPage: "/a", SessionReferrer: "r"}, got)
}

func TestParams_Merge(t *testing.T) {
	a := Params{UTMSource: "a"}
	b := Params{UTMSource: "b", UTMMedium: "m"}
	assert.Equal(t, Params{UTMSource: "a", UTMMedium: "m"}, a.Merge(b))
	assert.True(t, Params{}.Empty())
	assert.False(t, a.Empty())
}
