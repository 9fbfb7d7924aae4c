package access

import (
	"context"
	"errors"
	"strings"
	"time"

	"carehive/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo: repo,
		log:  log.With(map[string]any{"component": "access"}),
		now:  time.Now,
	}
}

type InviteInput struct {
	MemberID      string
	OwnerUserID   string
	GranteeUserID string
	Scopes        []Scope
}

// Invite crea un grant "invited" o, si ya hay uno vivo para el mismo
// (familiar, dueño, médico), le actualiza los scopes y revoca duplicados.
func (s *Service) Invite(ctx context.Context, in InviteInput) (Grant, error) {
	memberID := strings.TrimSpace(in.MemberID)
	ownerID := strings.TrimSpace(in.OwnerUserID)
	granteeID := strings.TrimSpace(in.GranteeUserID)

	if memberID == "" || ownerID == "" || granteeID == "" {
		return Grant{}, ErrInvalidInput
	}
	if ownerID == granteeID {
		return Grant{}, ErrInvalidInput
	}

	scopes := append([]Scope(nil), DefaultScopes...)
	if len(in.Scopes) > 0 {
		var err error
		scopes, err = normalizeScopesStrict(in.Scopes)
		if err != nil {
			return Grant{}, err
		}
		if len(scopes) == 0 {
			return Grant{}, ErrInvalidInput
		}
	}

	now := s.now()

	existing, allMatches, err := s.findLatestMatch(ctx, memberID, ownerID, granteeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Grant{}, err
	}
	if err == nil && existing.Status != StatusRevoked {
		s.revokeOtherMatches(ctx, existing.ID, allMatches, now)

		existing.Scopes = scopes
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return Grant{}, err
		}
		return existing, nil
	}

	// Sin match vivo (o el último está revocado): grant nuevo.
	g := Grant{
		ID:            uuid.NewString(),
		MemberID:      memberID,
		OwnerUserID:   ownerID,
		GranteeUserID: granteeID,
		Scopes:        scopes,
		Status:        StatusInvited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Accept activa el grant. Es idempotente y deja un único activo por
// (familiar, médico).
func (s *Service) Accept(ctx context.Context, grantID, granteeUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	granteeUserID = strings.TrimSpace(granteeUserID)

	if grantID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	if g.GranteeUserID != granteeUserID {
		return Grant{}, ErrForbidden
	}
	switch g.Status {
	case StatusActive:
		return g, nil
	case StatusInvited:
	default:
		return Grant{}, ErrBadState
	}

	now := s.now()
	g.Status = StatusActive
	g.UpdatedAt = now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	others, err := s.repo.ListByMember(ctx, g.MemberID)
	if err != nil {
		s.log.Warn("list grants for dedupe failed", map[string]any{"grant_id": g.ID, "member_id": g.MemberID, "err": err})
		return g, nil
	}
	for _, o := range others {
		if o.ID == g.ID || o.GranteeUserID != g.GranteeUserID || o.Status == StatusRevoked {
			continue
		}
		o.Status = StatusRevoked
		o.UpdatedAt = now
		o.RevokedAt = &now
		if err := s.repo.Update(ctx, o); err != nil {
			s.log.Error("revoke duplicate grant failed", map[string]any{"grant_id": o.ID, "kept_grant_id": g.ID, "err": err})
		}
	}

	return g, nil
}

// Revoke solo lo puede hacer el dueño. Idempotente.
func (s *Service) Revoke(ctx context.Context, grantID, ownerUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	ownerUserID = strings.TrimSpace(ownerUserID)

	if grantID == "" || ownerUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	if g.OwnerUserID != ownerUserID {
		return Grant{}, ErrForbidden
	}
	if g.Status == StatusRevoked {
		return g, nil
	}

	now := s.now()
	g.Status = StatusRevoked
	g.UpdatedAt = now
	g.RevokedAt = &now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

func (s *Service) ListByMember(ctx context.Context, memberID string) ([]Grant, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMember(ctx, memberID)
}

func (s *Service) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByGrantee(ctx, granteeUserID)
}

func (s *Service) GetActiveGrant(ctx context.Context, memberID, granteeUserID string) (Grant, error) {
	memberID = strings.TrimSpace(memberID)
	granteeUserID = strings.TrimSpace(granteeUserID)

	if memberID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}
	g, err := s.repo.GetActiveGrant(ctx, memberID, granteeUserID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

// Allowed resuelve la regla de siempre: el dueño pasa directo, cualquier
// otro necesita un grant activo con el scope pedido.
func (s *Service) Allowed(ctx context.Context, ownerUserID, memberID, userID string, scope Scope) bool {
	if userID == "" {
		return false
	}
	if ownerUserID == userID {
		return true
	}
	g, err := s.GetActiveGrant(ctx, memberID, userID)
	if err != nil {
		return false
	}
	return HasScope(g, scope)
}

// SharedMemberIDs lista los familiares con grant activo para el médico que
// incluyan scope (sin duplicados, en el orden del repo).
func (s *Service) SharedMemberIDs(ctx context.Context, granteeUserID string, scope Scope) ([]string, error) {
	grants, err := s.ListByGrantee(ctx, granteeUserID)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(grants))
	for _, g := range grants {
		if g.Status != StatusActive || !HasScope(g, scope) {
			continue
		}
		if _, ok := seen[g.MemberID]; ok {
			continue
		}
		seen[g.MemberID] = struct{}{}
		out = append(out, g.MemberID)
	}
	return out, nil
}

// HasScope valida si el grant incluye un scope.
func HasScope(g Grant, scope Scope) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (s *Service) findLatestMatch(ctx context.Context, memberID, ownerID, granteeID string) (Grant, []Grant, error) {
	items, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return Grant{}, nil, err
	}

	matches := make([]Grant, 0)
	var winner Grant
	hasWinner := false

	for _, g := range items {
		if g.MemberID != memberID || g.OwnerUserID != ownerID || g.GranteeUserID != granteeID {
			continue
		}
		matches = append(matches, g)

		if !hasWinner || g.UpdatedAt.After(winner.UpdatedAt) {
			winner = g
			hasWinner = true
		}
	}

	if !hasWinner {
		return Grant{}, matches, ErrNotFound
	}
	return winner, matches, nil
}

func (s *Service) revokeOtherMatches(ctx context.Context, winnerID string, matches []Grant, now time.Time) {
	for _, g := range matches {
		if g.ID == "" || g.ID == winnerID || g.Status == StatusRevoked {
			continue
		}
		g.Status = StatusRevoked
		g.UpdatedAt = now
		g.RevokedAt = &now
		if err := s.repo.Update(ctx, g); err != nil {
			s.log.Error("revoke duplicate grant failed", map[string]any{"grant_id": g.ID, "kept_grant_id": winnerID, "err": err})
		}
	}
}

func normalizeScopesStrict(in []Scope) ([]Scope, error) {
	allowed := map[Scope]struct{}{
		ScopeProfileRead:      {},
		ScopeRecordsRead:      {},
		ScopeNotesCreate:      {},
		ScopeAppointmentsRead: {},
		ScopeMedicinesRead:    {},
	}

	seen := map[Scope]struct{}{}
	out := make([]Scope, 0, len(in))

	for _, raw := range in {
		s := Scope(strings.TrimSpace(string(raw)))
		if s == "" {
			continue
		}
		if _, ok := allowed[s]; !ok {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}
