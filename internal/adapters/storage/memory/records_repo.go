package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"carehive/internal/domain/records"
)

type recordRepo struct {
	mu   sync.RWMutex
	byID map[string]records.Record
}

func NewRecordRepo() records.Repository {
	return &recordRepo{
		byID: make(map[string]records.Record),
	}
}

func (r *recordRepo) Create(ctx context.Context, rec records.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return errors.New("record already exists")
	}
	r.byID[rec.ID] = rec
	return nil
}

func (r *recordRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.Record{}, records.ErrNotFound
	}
	return rec, nil
}

func (r *recordRepo) ListByMember(ctx context.Context, memberID string, filter records.ListFilter) ([]records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]records.Record, 0)
	for _, rec := range r.byID {
		if rec.MemberID != memberID {
			continue
		}
		if filter.ActiveOnly && rec.Status != records.StatusActive {
			continue
		}
		if len(filter.Types) > 0 && !hasType(filter.Types, rec.Type) {
			continue
		}
		if filter.From != nil && rec.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.Date.After(*filter.To) {
			continue
		}
		if q != "" && !matchesRecord(rec, q) {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].Date.After(out[j].Date)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *recordRepo) Void(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.ErrNotFound
	}
	rec.Status = records.StatusVoided
	r.byID[id] = rec
	return nil
}

func hasType(types []records.RecordType, t records.RecordType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func matchesRecord(rec records.Record, q string) bool {
	return strings.Contains(strings.ToLower(rec.Name), q) ||
		strings.Contains(strings.ToLower(rec.Description), q) ||
		strings.Contains(strings.ToLower(rec.DoctorName), q)
}
