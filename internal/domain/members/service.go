package members

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
	ErrNotFound     = errors.New("member not found")
	ErrForbidden    = errors.New("forbidden")
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
	Name             string
	Relationship     string
	NIC              string
	Phone            string
	BloodGroup       string
	HeightCM         float64
	WeightKG         float64
	BirthDate        *time.Time
	Allergies        []string
	Conditions       []string
	EmergencyContact EmergencyContact
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Member, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" || strings.TrimSpace(in.Name) == "" {
		return Member{}, ErrInvalidInput
	}

	rel := Relationship(strings.TrimSpace(in.Relationship))
	if rel == "" {
		rel = RelationshipSelf
	}

	now := s.now()
	m := Member{
		ID:           uuid.NewString(),
		OwnerUserID:  ownerUserID,
		Name:         strings.TrimSpace(in.Name),
		Relationship: rel,
		NIC:          strings.TrimSpace(in.NIC),
		Phone:        strings.TrimSpace(in.Phone),
		BloodGroup:   BloodGroup(strings.ToUpper(strings.TrimSpace(in.BloodGroup))),
		HeightCM:     in.HeightCM,
		WeightKG:     in.WeightKG,
		BirthDate:    in.BirthDate,
		Allergies:    cleanList(in.Allergies),
		Conditions:   cleanList(in.Conditions),
		EmergencyContact: EmergencyContact{
			Name:         strings.TrimSpace(in.EmergencyContact.Name),
			Phone:        strings.TrimSpace(in.EmergencyContact.Phone),
			Relationship: strings.TrimSpace(in.EmergencyContact.Relationship),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validate(m); err != nil {
		return Member{}, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Member, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Member{}, ErrNotFound
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}
	return m, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Member, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

func (s *Service) ListByIDs(ctx context.Context, ids []string) ([]Member, error) {
	if len(ids) == 0 {
		return []Member{}, nil
	}
	return s.repo.ListByIDs(ctx, ids)
}

// OptionalDate distingue "no enviado" de "enviado null" en un PATCH.
type OptionalDate struct {
	Present bool
	Value   *time.Time
}

// UpdateProfileInput: nil = no tocar.
type UpdateProfileInput struct {
	Name             *string
	Relationship     *string
	NIC              *string
	Phone            *string
	BloodGroup       *string
	HeightCM         *float64
	WeightKG         *float64
	BirthDate        OptionalDate
	Allergies        *[]string
	Conditions       *[]string
	EmergencyContact *EmergencyContact
}

// UpdateProfile solo lo puede hacer el dueño.
func (s *Service) UpdateProfile(ctx context.Context, memberID, userID string, in UpdateProfileInput) (Member, error) {
	m, err := s.GetByID(ctx, memberID)
	if err != nil {
		return Member{}, err
	}
	if m.OwnerUserID != userID {
		return Member{}, ErrForbidden
	}

	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
		if m.Name == "" {
			return Member{}, ErrInvalidInput
		}
	}
	if in.Relationship != nil {
		m.Relationship = Relationship(strings.TrimSpace(*in.Relationship))
	}
	if in.NIC != nil {
		m.NIC = strings.TrimSpace(*in.NIC)
	}
	if in.Phone != nil {
		m.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.BloodGroup != nil {
		m.BloodGroup = BloodGroup(strings.ToUpper(strings.TrimSpace(*in.BloodGroup)))
	}
	if in.HeightCM != nil {
		m.HeightCM = *in.HeightCM
	}
	if in.WeightKG != nil {
		m.WeightKG = *in.WeightKG
	}
	if in.BirthDate.Present {
		m.BirthDate = in.BirthDate.Value
	}
	if in.Allergies != nil {
		m.Allergies = cleanList(*in.Allergies)
	}
	if in.Conditions != nil {
		m.Conditions = cleanList(*in.Conditions)
	}
	if in.EmergencyContact != nil {
		m.EmergencyContact = *in.EmergencyContact
	}

	if err := validate(m); err != nil {
		return Member{}, err
	}

	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Search filtra por id, nombre o teléfono (substring, sin mayúsculas)
// dentro de ids. Query vacía devuelve todos.
func (s *Service) Search(ctx context.Context, ids []string, query string) ([]Member, error) {
	items, err := s.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items, nil
	}
	out := make([]Member, 0, len(items))
	for _, m := range items {
		if strings.Contains(strings.ToLower(m.ID), q) ||
			strings.Contains(strings.ToLower(m.Name), q) ||
			strings.Contains(m.Phone, q) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Age en años cumplidos a now; 0 si no hay fecha.
func Age(m Member, now time.Time) int {
	if m.BirthDate == nil {
		return 0
	}
	b := *m.BirthDate
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func validate(m Member) error {
	if m.NIC != "" && !validNIC(m.NIC) {
		return fmt.Errorf("%w: nic must have 12 or 13 digits", ErrInvalidInput)
	}
	if m.BloodGroup != "" {
		if _, ok := bloodGroups[m.BloodGroup]; !ok {
			return fmt.Errorf("%w: unknown blood_group", ErrInvalidInput)
		}
	}
	if m.HeightCM < 0 || m.WeightKG < 0 {
		return fmt.Errorf("%w: height and weight must be positive", ErrInvalidInput)
	}
	return nil
}

func validNIC(nic string) bool {
	if len(nic) != 12 && len(nic) != 13 {
		return false
	}
	for _, r := range nic {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
