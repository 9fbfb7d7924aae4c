package records

import "time"

type Author struct {
	Type AuthorType
	ID   string
}

// Record es una entrada del historial médico de un familiar: informe,
// receta, nota del médico o resultado de laboratorio.
type Record struct {
	ID       string
	MemberID string

	Type RecordType
	Name string
	Date time.Time

	Description string
	DoctorName  string
	FileURL     string // el archivo vive fuera; acá solo la URL
	Tags        []string

	Author     Author
	RecordedAt time.Time
	Status     Status
}

// TimelineEntry es una línea del resumen "últimos registros".
type TimelineEntry struct {
	RecordID string
	Type     RecordType
	Date     string // YYYY-MM-DD
	Label    string // "<type>: <name>"
}
