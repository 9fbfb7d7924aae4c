package members

import "context"

type Repository interface {
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error
	GetByID(ctx context.Context, id string) (Member, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Member, error)
	ListByIDs(ctx context.Context, ids []string) ([]Member, error)
}
