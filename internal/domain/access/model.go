package access

import "time"

// Scope es un permiso puntual que el dueño le da a un médico sobre un familiar.
type Scope string

const (
	ScopeProfileRead      Scope = "profile:read"
	ScopeRecordsRead      Scope = "records:read"
	ScopeNotesCreate      Scope = "notes:create"
	ScopeAppointmentsRead Scope = "appointments:read"
	ScopeMedicinesRead    Scope = "medicines:read"
)

// DefaultScopes se aplica cuando el dueño invita sin indicar scopes.
var DefaultScopes = []Scope{ScopeProfileRead, ScopeRecordsRead}

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

type Grant struct {
	ID string

	MemberID string

	OwnerUserID   string // cuenta familiar
	GranteeUserID string // médico

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
