// Package doctor arma las vistas del lado web (médicos) a partir de los
// módulos de familiares, grants, registros, citas y medicinas.
package doctor

import (
	"context"
	"errors"
	"strings"
	"time"

	"carehive/internal/domain/access"
	"carehive/internal/domain/appointments"
	"carehive/internal/domain/medicines"
	"carehive/internal/domain/members"
	"carehive/internal/domain/records"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("patient not found")
	ErrForbidden    = errors.New("forbidden")
)

// UpcomingLimit es cuántas citas muestra el dashboard.
const UpcomingLimit = 5

const noteName = "Doctor Note"

var allScopes = []access.Scope{
	access.ScopeProfileRead,
	access.ScopeRecordsRead,
	access.ScopeNotesCreate,
	access.ScopeAppointmentsRead,
	access.ScopeMedicinesRead,
}

type Service struct {
	members      *members.Service
	grants       *access.Service
	records      *records.Service
	appointments *appointments.Service
	medicines    *medicines.Service
	now          func() time.Time
}

func NewService(
	membersSvc *members.Service,
	grantsSvc *access.Service,
	recordsSvc *records.Service,
	appointmentsSvc *appointments.Service,
	medicinesSvc *medicines.Service,
) *Service {
	return &Service{
		members:      membersSvc,
		grants:       grantsSvc,
		records:      recordsSvc,
		appointments: appointmentsSvc,
		medicines:    medicinesSvc,
		now:          time.Now,
	}
}

type UpcomingAppointment struct {
	Appointment appointments.Appointment
	PatientName string
}

type Dashboard struct {
	PatientCount int
	Upcoming     []UpcomingAppointment
}

// Dashboard cuenta pacientes con grant activo y junta sus próximas citas.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	patients, err := s.grants.SharedMemberIDs(ctx, userID, access.ScopeProfileRead)
	if err != nil {
		return Dashboard{}, err
	}
	withAppts, err := s.grants.SharedMemberIDs(ctx, userID, access.ScopeAppointmentsRead)
	if err != nil {
		return Dashboard{}, err
	}

	items, err := s.appointments.Upcoming(ctx, withAppts, s.now(), UpcomingLimit)
	if err != nil {
		return Dashboard{}, err
	}

	names := map[string]string{}
	if ms, err := s.members.ListByIDs(ctx, withAppts); err == nil {
		for _, m := range ms {
			names[m.ID] = m.Name
		}
	}

	out := Dashboard{PatientCount: len(patients), Upcoming: make([]UpcomingAppointment, 0, len(items))}
	for _, a := range items {
		out.Upcoming = append(out.Upcoming, UpcomingAppointment{Appointment: a, PatientName: names[a.MemberID]})
	}
	return out, nil
}

// Search busca entre los familiares propios y los compartidos con profile:read.
func (s *Service) Search(ctx context.Context, userID, query string) ([]members.Member, error) {
	owned, err := s.members.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.grants.SharedMemberIDs(ctx, userID, access.ScopeProfileRead)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(owned)+len(shared))
	for _, m := range owned {
		ids = append(ids, m.ID)
	}
	ids = append(ids, shared...)

	return s.members.Search(ctx, ids, query)
}

// PatientView es el perfil agregado. Las secciones sin scope quedan en nil.
type PatientView struct {
	Member members.Member
	Age    int
	Scopes []access.Scope

	Reports       []records.Record
	Prescriptions []records.Record
	Notes         []records.Record
	Timeline      []records.TimelineEntry

	Appointments []appointments.Appointment

	Compliance *medicines.MemberSummary
}

func (s *Service) Patient(ctx context.Context, userID, memberID string) (PatientView, error) {
	m, scopes, err := s.authorize(ctx, userID, memberID)
	if err != nil {
		return PatientView{}, err
	}
	if !hasScope(scopes, access.ScopeProfileRead) {
		return PatientView{}, ErrForbidden
	}

	view := PatientView{Member: m, Age: members.Age(m, s.now()), Scopes: scopes}

	if hasScope(scopes, access.ScopeRecordsRead) {
		recs, err := s.records.ListByMember(ctx, memberID, records.ListFilter{ActiveOnly: true, Limit: records.MaxListLimit})
		if err != nil {
			return PatientView{}, err
		}
		view.Reports = []records.Record{}
		view.Prescriptions = []records.Record{}
		view.Notes = []records.Record{}
		for _, rec := range recs {
			switch rec.Type {
			case records.TypeReport, records.TypeLabResult:
				view.Reports = append(view.Reports, rec)
			case records.TypePrescription:
				view.Prescriptions = append(view.Prescriptions, rec)
			case records.TypeNote:
				view.Notes = append(view.Notes, rec)
			}
		}
		if view.Timeline, err = s.records.Timeline(ctx, memberID); err != nil {
			return PatientView{}, err
		}
	}

	if hasScope(scopes, access.ScopeAppointmentsRead) {
		if view.Appointments, err = s.appointments.ListByMember(ctx, memberID); err != nil {
			return PatientView{}, err
		}
	}

	if hasScope(scopes, access.ScopeMedicinesRead) {
		meds, err := s.medicines.ListByRelation(ctx, memberID)
		if err != nil {
			return PatientView{}, err
		}
		sum := medicines.MemberSummary{Relation: memberID, Items: []medicines.MedicineSummary{}}
		if grouped := medicines.SummarizeByRelation(meds); len(grouped) > 0 {
			sum = grouped[0]
		}
		view.Compliance = &sum
	}

	return view, nil
}

// AddNote deja una nota del médico en el historial del paciente.
func (s *Service) AddNote(ctx context.Context, userID, memberID, text string) (records.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return records.Record{}, ErrInvalidInput
	}

	m, scopes, err := s.authorize(ctx, userID, memberID)
	if err != nil {
		return records.Record{}, err
	}
	if !hasScope(scopes, access.ScopeNotesCreate) {
		return records.Record{}, ErrForbidden
	}

	author := records.Author{Type: records.AuthorDoctor, ID: userID}
	if m.OwnerUserID == userID {
		author.Type = records.AuthorOwner
	}
	return s.records.Create(ctx, memberID, author, records.CreateInput{
		Type:        records.TypeNote,
		Name:        noteName,
		Description: text,
	})
}

// authorize devuelve el familiar y los scopes efectivos del usuario:
// todos si es el dueño, los del grant activo si es médico.
func (s *Service) authorize(ctx context.Context, userID, memberID string) (members.Member, []access.Scope, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, members.ErrNotFound) {
			return members.Member{}, nil, ErrNotFound
		}
		return members.Member{}, nil, err
	}
	if m.OwnerUserID == userID {
		return m, allScopes, nil
	}
	g, err := s.grants.GetActiveGrant(ctx, memberID, userID)
	if err != nil {
		return members.Member{}, nil, ErrForbidden
	}
	return m, g.Scopes, nil
}

func hasScope(scopes []access.Scope, want access.Scope) bool {
	for _, sc := range scopes {
		if sc == want {
			return true
		}
	}
	return false
}
