// Package mail delivers reminder emails, either straight to Resend with its
// native scheduling or through an asynq delay queue.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"

	"booking-service/internal/reminders"
)

// emailSender is the subset of the Resend SDK the mailer calls.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendMailer struct {
	emails  emailSender
	from    string
	replyTo string
}

func NewResendMailer(apiKey, from, replyTo string) *ResendMailer {
	client := resend.NewClient(apiKey)
	return &ResendMailer{emails: client.Emails, from: from, replyTo: replyTo}
}

func (m *ResendMailer) Send(ctx context.Context, msg reminders.Message) (string, error) {
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: m.replyTo,
	}
	if msg.SendAt != nil {
		req.ScheduledAt = msg.SendAt.UTC().Format(time.RFC3339)
	}

	sent, err := m.emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend %s: %w", msg.Kind, err)
	}
	return sent.Id, nil
}
