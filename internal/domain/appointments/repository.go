package appointments

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a Appointment) error
	Update(ctx context.Context, a Appointment) error
	GetByID(ctx context.Context, id string) (Appointment, error)
	// ListByMember ordena por ScheduledAt asc.
	ListByMember(ctx context.Context, memberID string) ([]Appointment, error)
	// ListUpcoming devuelve citas pendientes con ScheduledAt >= from, asc.
	ListUpcoming(ctx context.Context, memberIDs []string, from time.Time, limit int) ([]Appointment, error)
}
