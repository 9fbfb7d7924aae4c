package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	TimelineSize     = 10
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Type        RecordType
	Name        string
	Date        time.Time // cero = hoy
	Description string
	DoctorName  string
	FileURL     string
	Tags        []string
}

func (s *Service) Create(ctx context.Context, memberID string, author Author, in CreateInput) (Record, error) {
	if strings.TrimSpace(memberID) == "" {
		return Record{}, ErrInvalidInput
	}
	if author.Type == "" || strings.TrimSpace(author.ID) == "" {
		return Record{}, ErrInvalidInput
	}
	if !in.Type.Valid() {
		return Record{}, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Type)
	}

	rec := Record{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		Type:        in.Type,
		Name:        strings.TrimSpace(in.Name),
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
		DoctorName:  strings.TrimSpace(in.DoctorName),
		FileURL:     strings.TrimSpace(in.FileURL),
		Tags:        in.Tags,
		Author:      author,
		Status:      StatusActive,
	}
	if err := requireFields(rec); err != nil {
		return Record{}, err
	}

	now := s.now()
	rec.RecordedAt = now
	if rec.Date.IsZero() {
		rec.Date = now
	}
	if rec.Name == "" {
		rec.Name = defaultName(rec.Type)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByMember(ctx context.Context, memberID string, filter ListFilter) ([]Record, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	return s.repo.ListByMember(ctx, memberID, filter)
}

// Void marca el registro como voided (no se borra).
func (s *Service) Void(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	if err := s.repo.Void(ctx, id); err != nil {
		return Record{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Timeline devuelve los últimos registros activos, más nuevo primero.
func (s *Service) Timeline(ctx context.Context, memberID string) ([]TimelineEntry, error) {
	items, err := s.repo.ListByMember(ctx, memberID, ListFilter{Limit: TimelineSize, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]TimelineEntry, 0, len(items))
	for _, rec := range items {
		out = append(out, TimelineEntry{
			RecordID: rec.ID,
			Type:     rec.Type,
			Date:     rec.Date.Format("2006-01-02"),
			Label:    fmt.Sprintf("%s: %s", rec.Type, rec.Name),
		})
	}
	return out, nil
}

func requireFields(rec Record) error {
	switch rec.Type {
	case TypePrescription:
		if rec.DoctorName == "" || rec.Description == "" {
			return fmt.Errorf("%w: prescription requires doctor_name and description", ErrInvalidInput)
		}
	case TypeReport:
		if rec.Description == "" || rec.FileURL == "" {
			return fmt.Errorf("%w: report requires description and file_url", ErrInvalidInput)
		}
	case TypeNote:
		if rec.Description == "" {
			return fmt.Errorf("%w: note requires description", ErrInvalidInput)
		}
	}
	return nil
}

func defaultName(t RecordType) string {
	switch t {
	case TypeNote:
		return "Doctor Note"
	case TypePrescription:
		return "Prescription"
	case TypeLabResult:
		return "Lab Result"
	default:
		return "Report"
	}
}
