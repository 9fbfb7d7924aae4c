package records

type RecordType string

const (
	TypeReport       RecordType = "report"
	TypePrescription RecordType = "prescription"
	TypeNote         RecordType = "note"
	TypeLabResult    RecordType = "lab_result"
)

func (t RecordType) Valid() bool {
	switch t {
	case TypeReport, TypePrescription, TypeNote, TypeLabResult:
		return true
	}
	return false
}

type AuthorType string

const (
	AuthorOwner  AuthorType = "owner"
	AuthorDoctor AuthorType = "doctor"
)

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)
