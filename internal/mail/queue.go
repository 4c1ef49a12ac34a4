package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"booking-service/internal/reminders"
)

const TypeReminderSend = "reminder:send"

// ReminderPayload is the queued form of a reminder. The send time lives on
// the task itself, so the payload carries none.
type ReminderPayload struct {
	Kind    reminders.Kind `json:"kind"`
	To      string         `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"html"`
	Text    string         `json:"text"`
}

func NewReminderTask(msg reminders.Message) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ReminderPayload{
		Kind:    msg.Kind,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderSend, b)
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
	if msg.SendAt != nil {
		opts = append(opts, asynq.ProcessAt(*msg.SendAt))
	}
	return task, opts, nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer defers every reminder to the asynq worker, which sends it once
// its process time arrives.
type QueueMailer struct {
	client enqueuer
}

func NewQueueMailer(client *asynq.Client) *QueueMailer {
	return &QueueMailer{client: client}
}

func (m *QueueMailer) Send(ctx context.Context, msg reminders.Message) (string, error) {
	task, opts, err := NewReminderTask(msg)
	if err != nil {
		return "", fmt.Errorf("build reminder task: %w", err)
	}
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", msg.Kind, err)
	}
	return info.ID, nil
}
