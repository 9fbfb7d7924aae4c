package appointments

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDone      Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusUpcoming, StatusCompleted, StatusCancelled, StatusDone:
		return true
	}
	return false
}

// Pending indica que la cita todavía no ocurrió ni se canceló.
func (s Status) Pending() bool {
	return s == StatusScheduled || s == StatusUpcoming
}

type Type string

const (
	TypeCheckup   Type = "checkup"
	TypeFollowUp  Type = "follow-up"
	TypeEmergency Type = "emergency"
	TypeRoutine   Type = "routine"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCheckup, TypeFollowUp, TypeEmergency, TypeRoutine:
		return true
	}
	return false
}

type Appointment struct {
	ID       string
	MemberID string

	Doctor string
	Reason string

	ScheduledAt time.Time
	// Time es la hora tal como la cargó el usuario ("10:30 AM").
	Time string

	Notes  string
	Status Status
	Type   Type

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
