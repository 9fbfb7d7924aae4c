package notify

import (
	"context"
	"time"
)

// Reminder es un pedido de notificación one-shot.
type Reminder struct {
	// Key identifica el recordatorio (medicina + dosis + día).
	// El core no deduplica; la plataforma puede usar Key para hacerlo.
	Key string

	UserID     string
	MedicineID string

	Title string
	Body  string

	TriggerAt time.Time
}

// Scheduler pide a la plataforma que dispare el recordatorio en TriggerAt.
// Si TriggerAt no es estrictamente futuro no se agenda nada.
type Scheduler interface {
	Schedule(ctx context.Context, r Reminder) error
}

// Sender entrega el recordatorio en el momento en que se dispara.
type Sender interface {
	Send(ctx context.Context, r Reminder) error
}
