package medicines

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m Medicine) error
	GetByID(ctx context.Context, id string) (Medicine, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Medicine, error)
	ListByRelation(ctx context.Context, relation string) ([]Medicine, error)
	// ListAll lo usa el refresco periódico.
	ListAll(ctx context.Context) ([]Medicine, error)

	// Increment suma 1 al contador de action y pone LastTakenAt = at en una
	// única escritura. Devuelve la medicina ya actualizada.
	Increment(ctx context.Context, id string, action Action, at time.Time) (Medicine, error)
}
