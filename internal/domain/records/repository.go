package records

import (
	"context"
	"time"
)

// Repository ordena por Date desc y devuelve ErrNotFound cuando corresponde.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	ListByMember(ctx context.Context, memberID string, filter ListFilter) ([]Record, error)
	Void(ctx context.Context, id string) error
}

type ListFilter struct {
	Types      []RecordType
	From       *time.Time
	To         *time.Time
	Query      string
	Limit      int
	ActiveOnly bool
}
