package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"carehive/internal/domain/members"
)

type memberRepo struct {
	mu   sync.RWMutex
	byID map[string]members.Member
}

func NewMemberRepo() members.Repository {
	return &memberRepo{
		byID: make(map[string]members.Member),
	}
}

func (r *memberRepo) Create(ctx context.Context, m members.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("member id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("member already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *memberRepo) Update(ctx context.Context, m members.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return members.ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *memberRepo) GetByID(ctx context.Context, id string) (members.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return members.Member{}, members.ErrNotFound
	}
	return m, nil
}

func (r *memberRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]members.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]members.Member, 0)
	for _, m := range r.byID {
		if m.OwnerUserID == ownerUserID {
			out = append(out, m)
		}
	}
	sortMembers(out)
	return out, nil
}

func (r *memberRepo) ListByIDs(ctx context.Context, ids []string) ([]members.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]members.Member, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := r.byID[id]; ok {
			out = append(out, m)
		}
	}
	sortMembers(out)
	return out, nil
}

// orden estable por created_at asc
func sortMembers(out []members.Member) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}
