package members

import "time"

// BloodGroup admite los ocho grupos ABO/Rh.
// @Enum A+, A-, B+, B-, AB+, AB-, O+, O-
type BloodGroup string

var bloodGroups = map[BloodGroup]struct{}{
	"A+": {}, "A-": {}, "B+": {}, "B-": {},
	"AB+": {}, "AB-": {}, "O+": {}, "O-": {},
}

// Relationship es texto libre de la app ("Myself", "Mother", ...).
type Relationship string

const RelationshipSelf Relationship = "Myself"

type EmergencyContact struct {
	Name         string
	Phone        string
	Relationship string
}

// Member es un familiar registrado por una cuenta (la "relation" de una medicina).
type Member struct {
	ID          string
	OwnerUserID string

	Name         string
	Relationship Relationship

	NIC   string
	Phone string

	BloodGroup BloodGroup
	HeightCM   float64
	WeightKG   float64
	BirthDate  *time.Time

	Allergies  []string
	Conditions []string

	EmergencyContact EmergencyContact

	CreatedAt time.Time
	UpdatedAt time.Time
}
