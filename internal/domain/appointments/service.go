package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carehive/internal/domain/doses"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("appointment not found")
)

type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService usa loc para interpretar fecha + hora de las citas.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

type CreateInput struct {
	Doctor string
	Reason string
	Date   string // YYYY-MM-DD
	Time   string // "10:30 AM"
	Notes  string
	Type   Type
	Status Status
}

func (s *Service) Create(ctx context.Context, memberID, createdBy string, in CreateInput) (Appointment, error) {
	if strings.TrimSpace(memberID) == "" || strings.TrimSpace(createdBy) == "" {
		return Appointment{}, ErrInvalidInput
	}
	doctor := strings.TrimSpace(in.Doctor)
	if doctor == "" || strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" {
		return Appointment{}, fmt.Errorf("%w: doctor, date and time are required", ErrInvalidInput)
	}

	at, err := s.scheduledAt(in.Date, in.Time)
	if err != nil {
		return Appointment{}, err
	}

	typ := in.Type
	if typ == "" {
		typ = TypeCheckup
	}
	if !typ.Valid() {
		return Appointment{}, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, typ)
	}
	status := in.Status
	if status == "" {
		status = StatusScheduled
	}
	if !status.Valid() {
		return Appointment{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	now := s.now()
	a := Appointment{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		Doctor:      doctor,
		Reason:      strings.TrimSpace(in.Reason),
		ScheduledAt: at,
		Time:        strings.TrimSpace(in.Time),
		Notes:       strings.TrimSpace(in.Notes),
		Status:      status,
		Type:        typ,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Appointment{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByMember(ctx context.Context, memberID string) ([]Appointment, error) {
	return s.repo.ListByMember(ctx, memberID)
}

type UpdateInput struct {
	Status *Status
	Notes  *string
}

// Update cambia estado y/o notas de una cita del familiar indicado.
func (s *Service) Update(ctx context.Context, memberID, id string, in UpdateInput) (Appointment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if a.MemberID != memberID {
		return Appointment{}, ErrNotFound
	}

	if in.Status != nil {
		if !in.Status.Valid() {
			return Appointment{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
		a.Status = *in.Status
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	a.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, a); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

// Upcoming: próximas citas pendientes entre varios familiares.
func (s *Service) Upcoming(ctx context.Context, memberIDs []string, now time.Time, limit int) ([]Appointment, error) {
	if len(memberIDs) == 0 {
		return []Appointment{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	return s.repo.ListUpcoming(ctx, memberIDs, now, limit)
}

func (s *Service) scheduledAt(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	at, ok := doses.ParseDoseTime(strings.TrimSpace(clock), day)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: time must look like 10:30 AM", ErrInvalidInput)
	}
	return at, nil
}
