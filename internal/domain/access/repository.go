package access

import "context"

// Repository devuelve ErrNotFound cuando el grant no existe.
type Repository interface {
	Create(ctx context.Context, g Grant) error
	Update(ctx context.Context, g Grant) error
	GetByID(ctx context.Context, id string) (Grant, error)
	ListByMember(ctx context.Context, memberID string) ([]Grant, error)
	ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error)
	GetActiveGrant(ctx context.Context, memberID, granteeUserID string) (Grant, error)
}
