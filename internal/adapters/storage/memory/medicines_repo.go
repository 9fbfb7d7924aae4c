package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"carehive/internal/domain/medicines"
)

type medicineRepo struct {
	mu   sync.RWMutex
	byID map[string]medicines.Medicine
}

func NewMedicineRepo() medicines.Repository {
	return &medicineRepo{
		byID: make(map[string]medicines.Medicine),
	}
}

func (r *medicineRepo) Create(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medicine id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medicine already exists")
	}
	r.byID[m.ID] = cloneMedicine(m)
	return nil
}

func (r *medicineRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return cloneMedicine(m), nil
}

func (r *medicineRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]medicines.Medicine, error) {
	return r.list(func(m medicines.Medicine) bool { return m.OwnerUserID == ownerUserID }), nil
}

func (r *medicineRepo) ListByRelation(ctx context.Context, relation string) ([]medicines.Medicine, error) {
	return r.list(func(m medicines.Medicine) bool { return m.Relation == relation }), nil
}

func (r *medicineRepo) ListAll(ctx context.Context) ([]medicines.Medicine, error) {
	return r.list(func(medicines.Medicine) bool { return true }), nil
}

// Increment lee y escribe bajo el mismo lock: dos taps concurrentes suman 2.
func (r *medicineRepo) Increment(ctx context.Context, id string, action medicines.Action, at time.Time) (medicines.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	switch action {
	case medicines.ActionTaken:
		m.Taken++
	case medicines.ActionSkip:
		m.Skipped++
	default:
		return medicines.Medicine{}, errors.New("unknown action " + string(action))
	}
	m.LastTakenAt = &at
	m.UpdatedAt = at
	r.byID[id] = m
	return cloneMedicine(m), nil
}

func (r *medicineRepo) list(keep func(medicines.Medicine) bool) []medicines.Medicine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, m := range r.byID {
		if keep(m) {
			out = append(out, cloneMedicine(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func cloneMedicine(m medicines.Medicine) medicines.Medicine {
	m.Times = append([]string(nil), m.Times...)
	if m.LastTakenAt != nil {
		t := *m.LastTakenAt
		m.LastTakenAt = &t
	}
	return m
}
