// Package webhook entrega recordatorios como POST JSON a una URL externa
// (gateway de push, bot, etc).
package webhook

import (
	"context"
	"time"

	"carehive/internal/platform/httpclient"
	"carehive/internal/ports/notify"
)

// Payload es el cuerpo que recibe el webhook.
type Payload struct {
	Key        string    `json:"key"`
	UserID     string    `json:"user_id"`
	MedicineID string    `json:"medicine_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	TriggerAt  time.Time `json:"trigger_at"`
}

type Sender struct {
	client *httpclient.Client
	url    string
}

func New(client *httpclient.Client, url string) *Sender {
	return &Sender{client: client, url: url}
}

func (s *Sender) Send(ctx context.Context, r notify.Reminder) error {
	return s.client.PostJSON(ctx, s.url, ToPayload(r), nil)
}

func ToPayload(r notify.Reminder) Payload {
	return Payload{
		Key:        r.Key,
		UserID:     r.UserID,
		MedicineID: r.MedicineID,
		Title:      r.Title,
		Body:       r.Body,
		TriggerAt:  r.TriggerAt,
	}
}
