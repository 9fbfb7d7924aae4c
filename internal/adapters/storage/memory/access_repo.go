package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"carehive/internal/domain/access"
)

type grantRepo struct {
	mu   sync.RWMutex
	byID map[string]access.Grant
}

func NewGrantRepo() access.Repository {
	return &grantRepo{
		byID: make(map[string]access.Grant),
	}
}

func (r *grantRepo) Create(ctx context.Context, g access.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(g.ID) == "" {
		return errors.New("grant id required")
	}
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("grant already exists")
	}
	r.byID[g.ID] = cloneGrant(g)
	return nil
}

func (r *grantRepo) Update(ctx context.Context, g access.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[g.ID]; !exists {
		return access.ErrNotFound
	}
	r.byID[g.ID] = cloneGrant(g)
	return nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (access.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return access.Grant{}, access.ErrNotFound
	}
	return cloneGrant(g), nil
}

func (r *grantRepo) ListByMember(ctx context.Context, memberID string) ([]access.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]access.Grant, 0)
	for _, g := range r.byID {
		if g.MemberID == memberID {
			out = append(out, cloneGrant(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *grantRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]access.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]access.Grant, 0)
	for _, g := range r.byID {
		if g.GranteeUserID == granteeUserID {
			out = append(out, cloneGrant(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *grantRepo) GetActiveGrant(ctx context.Context, memberID, granteeUserID string) (access.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best  access.Grant
		found bool
	)
	for _, g := range r.byID {
		if g.MemberID != memberID || g.GranteeUserID != granteeUserID || g.Status != access.StatusActive {
			continue
		}
		if !found || g.UpdatedAt.After(best.UpdatedAt) {
			best = g
			found = true
		}
	}
	if !found {
		return access.Grant{}, access.ErrNotFound
	}
	return cloneGrant(best), nil
}

// los scopes son un slice: se copian para que el llamador no mute el store
func cloneGrant(g access.Grant) access.Grant {
	g.Scopes = append([]access.Scope(nil), g.Scopes...)
	if g.RevokedAt != nil {
		t := *g.RevokedAt
		g.RevokedAt = &t
	}
	return g
}
