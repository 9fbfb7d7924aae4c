package medicines

import (
	"time"

	"carehive/internal/domain/doses"
)

// Action es lo que el usuario hace sobre una dosis.
type Action string

const (
	ActionTaken Action = "taken"
	ActionSkip  Action = "skipped"
)

// Medicine es un tratamiento de un familiar: horas del día, cantidad de días
// y los contadores acumulados de dosis tomadas/salteadas.
type Medicine struct {
	ID          string
	OwnerUserID string

	Name string
	// Relation es el ID del familiar (members.Member).
	Relation string

	// Times en el formato de la app ("8:00AM"), en orden de toma.
	Times    []string
	Quantity int

	Taken       int
	Skipped     int
	LastTakenAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Schedule es la vista que consume el motor de dosis.
func (m Medicine) Schedule() doses.Schedule {
	return doses.Schedule{
		Times:       m.Times,
		Taken:       m.Taken,
		LastTakenAt: m.LastTakenAt,
	}
}

// BoardItem es una fila del tablero Due/Next/Taken.
type BoardItem struct {
	Medicine Medicine
	Status   doses.DoseStatus
	// ReminderAt es cuándo se pidió el recordatorio en esta pasada (si se pidió).
	ReminderAt *time.Time
}
