package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"booking-service/internal/content"
	"booking-service/internal/reminders"
)

const (
	reviewKind   reminders.Kind = "blog_review"
	previewRunes                = 800
)

const reviewHTML = `<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background: #0f172a; padding: 30px; border-radius: 10px; margin-bottom: 20px;">
<h1 style="color: #22d3ee; margin: 0 0 10px 0; font-size: 24px;">New Blog Post Ready for Review</h1>
<p style="color: #94a3b8; margin: 0;">A new blog post has been generated and is waiting for your approval.</p>
</div>
<div style="background: #f8fafc; padding: 20px; border-radius: 10px;">
<div style="color: #0f172a; font-size: 20px; font-weight: bold; margin-bottom: 10px;">{{.Post.Title}}</div>
<div style="color: #64748b; margin-bottom: 20px;">{{.Post.Description}}</div>
<div style="background: white; border: 1px solid #e2e8f0; padding: 15px; border-radius: 8px; white-space: pre-wrap;"><strong>Preview:</strong>

{{.Preview}}</div>
{{if .ApproveURL}}<p style="margin-top: 20px;">
<a href="{{.PublishURL}}" style="display: inline-block; padding: 12px 24px; border-radius: 6px; background: #22c55e; color: white; text-decoration: none; font-weight: bold;">Approve &amp; Publish</a>
<a href="{{.ApproveURL}}" style="display: inline-block; padding: 12px 24px; border-radius: 6px; background: #0ea5e9; color: white; text-decoration: none; font-weight: bold;">Approve</a>
<a href="{{.RejectURL}}" style="display: inline-block; padding: 12px 24px; border-radius: 6px; background: #ef4444; color: white; text-decoration: none; font-weight: bold;">Reject</a>
</p>{{else}}<p>Review it with <code>POST /api/blog/review</code> using slug <code>{{.Post.Slug}}</code>.</p>{{end}}
</div>
<p style="text-align: center; color: #94a3b8; font-size: 12px; margin-top: 30px;">The post will NOT be published until you approve it.</p>
</div>`

const reviewText = `New blog post ready for review

{{.Post.Title}}
{{.Post.Description}}

{{.Preview}}
{{if .ApproveURL}}
Approve and publish: {{.PublishURL}}
Approve: {{.ApproveURL}}
Reject: {{.RejectURL}}
{{else}}
Review it with POST /api/blog/review using slug {{.Post.Slug}}.
{{end}}
The post will NOT be published until you approve it.
`

var (
	reviewHTMLTmpl = htmltemplate.Must(htmltemplate.New("review").Parse(reviewHTML))
	reviewTextTmpl = texttemplate.Must(texttemplate.New("review").Parse(reviewText))
)

type reviewData struct {
	content.ReviewNotice
	Preview string
}

func preview(markdown string) string {
	r := []rune(markdown)
	if len(r) <= previewRunes {
		return markdown
	}
	return string(r[:previewRunes]) + "..."
}

// ReviewNotifier mails new drafts to the reviewer.
type ReviewNotifier struct {
	mailer reminders.Mailer
	to     string
}

func NewReviewNotifier(m reminders.Mailer, to string) *ReviewNotifier {
	return &ReviewNotifier{mailer: m, to: to}
}

func (n *ReviewNotifier) NotifyReview(ctx context.Context, notice content.ReviewNotice) error {
	if notice.Post == nil {
		return errors.New("review notice without a post")
	}
	data := reviewData{ReviewNotice: notice, Preview: preview(notice.Post.Markdown)}

	var html, text bytes.Buffer
	if err := reviewHTMLTmpl.Execute(&html, data); err != nil {
		return fmt.Errorf("render review html: %w", err)
	}
	if err := reviewTextTmpl.Execute(&text, data); err != nil {
		return fmt.Errorf("render review text: %w", err)
	}

	_, err := n.mailer.Send(ctx, reminders.Message{
		Kind:    reviewKind,
		To:      n.to,
		Subject: "📝 Blog Review: " + notice.Post.Title,
		HTML:    html.String(),
		Text:    text.String(),
	})
	return err
}
