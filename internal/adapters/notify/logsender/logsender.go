// Package logsender "entrega" recordatorios escribiéndolos en el log. Es el
// sink por defecto en desarrollo.
package logsender

import (
	"context"
	"time"

	"carehive/internal/platform/logger"
	"carehive/internal/ports/notify"
)

type Sender struct {
	log logger.Logger
}

func New(log logger.Logger) *Sender {
	if log == nil {
		log = logger.Nop()
	}
	return &Sender{log: log.With(map[string]any{"component": "reminders"})}
}

func (s *Sender) Send(ctx context.Context, r notify.Reminder) error {
	s.log.Info(r.Title, map[string]any{
		"key":         r.Key,
		"user":        r.UserID,
		"medicine_id": r.MedicineID,
		"body":        r.Body,
		"trigger_at":  r.TriggerAt.Format(time.RFC3339),
	})
	return nil
}
