package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"booking-service/internal/reminders"
)

// Worker drains the reminder queue and hands each due message to the
// provider for immediate delivery.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redis asynq.RedisClientOpt, sender reminders.Mailer, log *zap.Logger) *Worker {
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		Logger: log.Sugar(),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderSend, HandleReminderTask(sender, log))

	return &Worker{server: srv, mux: mux}
}

// Run blocks until the process receives SIGTERM or SIGINT.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func HandleReminderTask(sender reminders.Mailer, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Error("invalid reminder payload", zap.Error(err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}

		id, err := sender.Send(ctx, reminders.Message{
			Kind:    p.Kind,
			To:      p.To,
			Subject: p.Subject,
			HTML:    p.HTML,
			Text:    p.Text,
		})
		if err != nil {
			log.Warn("queued reminder delivery failed", zap.String("kind", string(p.Kind)), zap.Error(err))
			return err
		}
		log.Info("queued reminder sent", zap.String("kind", string(p.Kind)), zap.String("delivery_id", id))
		return nil
	}
}
