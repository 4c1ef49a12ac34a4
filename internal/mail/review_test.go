package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/content"
)

func TestReviewNotifier_NotifyReview(t *testing.T) {
	post := &content.Post{
		Slug:        "cut-no-shows",
		Title:       "Cut No-Shows",
		Description: "Reminders that work",
		Markdown:    strings.Repeat("a", 900),
	}

	t.Run("with review links", func(t *testing.T) {
		m := &recordingMailer{}
		n := NewReviewNotifier(m, "ben@wiebe-consulting.com")
		err := n.NotifyReview(context.Background(), content.ReviewNotice{
			Post:       post,
			ApproveURL: "https://api.example.com/api/blog/review?token=approve-tok",
			PublishURL: "https://api.example.com/api/blog/review?token=publish-tok",
			RejectURL:  "https://api.example.com/api/blog/review?token=reject-tok",
		})
		require.NoError(t, err)

		assert.Equal(t, "ben@wiebe-consulting.com", m.got.To)
		assert.Equal(t, "📝 Blog Review: Cut No-Shows", m.got.Subject)
		assert.Nil(t, m.got.SendAt)
		for _, tok := range []string{"approve-tok", "publish-tok", "reject-tok"} {
			assert.Contains(t, m.got.HTML, "token="+tok)
			assert.Contains(t, m.got.Text, "token="+tok)
		}
		assert.Contains(t, m.got.Text, strings.Repeat("a", 800)+"...")
		assert.NotContains(t, m.got.Text, strings.Repeat("a", 801))
	})

	t.Run("without links falls back to the admin route", func(t *testing.T) {
		m := &recordingMailer{}
		err := NewReviewNotifier(m, "ben@wiebe-consulting.com").NotifyReview(context.Background(), content.ReviewNotice{Post: post})
		require.NoError(t, err)
		assert.Contains(t, m.got.Text, "POST /api/blog/review using slug cut-no-shows")
		assert.NotContains(t, m.got.HTML, "token=")
	})

	t.Run("provider error surfaces", func(t *testing.T) {
		m := &recordingMailer{err: errors.New("resend: 429")}
		err := NewReviewNotifier(m, "x@y.z").NotifyReview(context.Background(), content.ReviewNotice{Post: post})
		assert.EqualError(t, err, "resend: 429")
	})

	t.Run("titles are escaped in html", func(t *testing.T) {
		m := &recordingMailer{}
		p := *post
		p.Title = "<script>x</script>"
		require.NoError(t, NewReviewNotifier(m, "x@y.z").NotifyReview(context.Background(), content.ReviewNotice{Post: &p}))
		assert.NotContains(t, m.got.HTML, "<script>")
	})
}
