package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booking-service/internal/reminders"
)

type mockSender struct {
	sendFunc func(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

func (m *mockSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	return m.sendFunc(ctx, params)
}

type mockEnqueuer struct {
	enqueueFunc func(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.enqueueFunc(ctx, task, opts...)
}

func TestResendMailer_Send(t *testing.T) {
	at := time.Date(2025, 1, 9, 19, 30, 0, 0, time.UTC)

	tests := []struct {
		name          string
		sendAt        *time.Time
		wantScheduled string
	}{
		{name: "immediate", sendAt: nil, wantScheduled: ""},
		{name: "scheduled", sendAt: &at, wantScheduled: "2025-01-09T19:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *resend.SendEmailRequest
			m := &ResendMailer{
				emails: &mockSender{sendFunc: func(_ context.Context, p *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
					got = p
					return &resend.SendEmailResponse{Id: "email_1"}, nil
				}},
				from:    "Wiebe Consulting <ben@wiebe-consulting.com>",
				replyTo: "ben@wiebe-consulting.com",
			}

			id, err := m.Send(context.Background(), reminders.Message{
				Kind: reminders.OneHourBefore, To: "jane@clinic.com", Subject: "s", HTML: "<p>h</p>", Text: "t", SendAt: tt.sendAt,
			})
			require.NoError(t, err)
			assert.Equal(t, "email_1", id)
			assert.Equal(t, []string{"jane@clinic.com"}, got.To)
			assert.Equal(t, "ben@wiebe-consulting.com", got.ReplyTo)
			assert.Equal(t, tt.wantScheduled, got.ScheduledAt)
		})
	}
}

func TestResendMailer_SendError(t *testing.T) {
	m := &ResendMailer{emails: &mockSender{sendFunc: func(context.Context, *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
		return nil, errors.New("rate limited")
	}}}
	_, err := m.Send(context.Background(), reminders.Message{Kind: reminders.Immediate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immediate_confirmation")
}

func TestNewReminderTask(t *testing.T) {
	at := time.Date(2025, 1, 9, 19, 30, 0, 0, time.UTC)
	task, opts, err := NewReminderTask(reminders.Message{
		Kind: reminders.OneDayBefore, To: "jane@clinic.com", Subject: "s", HTML: "h", Text: "t", SendAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeReminderSend, task.Type())

	var p ReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, reminders.OneDayBefore, p.Kind)
	assert.Equal(t, "jane@clinic.com", p.To)

	var processAt time.Time
	for _, o := range opts {
		if o.Type() == asynq.ProcessAtOpt {
			processAt = o.Value().(time.Time)
		}
	}
	assert.True(t, at.Equal(processAt))
}

func TestNewReminderTask_ImmediateHasNoProcessAt(t *testing.T) {
	_, opts, err := NewReminderTask(reminders.Message{Kind: reminders.Immediate})
	require.NoError(t, err)
	for _, o := range opts {
		assert.NotEqual(t, asynq.ProcessAtOpt, o.Type())
	}
}

func TestQueueMailer_Send(t *testing.T) {
	var enqueued *asynq.Task
	m := &QueueMailer{client: &mockEnqueuer{enqueueFunc: func(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
		enqueued = task
		return &asynq.TaskInfo{ID: "task-1"}, nil
	}}}

	id, err := m.Send(context.Background(), reminders.Message{Kind: reminders.SixHoursBefore, To: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)
	require.NotNil(t, enqueued)
	assert.Equal(t, TypeReminderSend, enqueued.Type())
}

type recordingMailer struct {
	got reminders.Message
	err error
}

func (m *recordingMailer) Send(_ context.Context, msg reminders.Message) (string, error) {
	m.got = msg
	return "sent-1", m.err
}

func TestHandleReminderTask(t *testing.T) {
	sender := &recordingMailer{}
	h := HandleReminderTask(sender, zap.NewNop())

	at := time.Now().Add(time.Hour)
	task, _, err := NewReminderTask(reminders.Message{Kind: reminders.OneHourBefore, To: "a@b.com", Subject: "s", SendAt: &at})
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, "a@b.com", sender.got.To)
	assert.Nil(t, sender.got.SendAt, "worker delivers immediately")

	t.Run("bad payload skips retry", func(t *testing.T) {
		err := h.ProcessTask(context.Background(), asynq.NewTask(TypeReminderSend, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("provider failure is retried", func(t *testing.T) {
		sender.err = errors.New("boom")
		err := h.ProcessTask(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}
