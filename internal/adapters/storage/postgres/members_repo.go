package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"carehive/internal/domain/members"
)

type MembersRepo struct {
	db *sql.DB
}

func NewMembersRepo(db *sql.DB) *MembersRepo {
	return &MembersRepo{db: db}
}

const memberColumns = `
	id, owner_user_id, name, relationship,
	nic, phone, blood_group, height_cm, weight_kg, birth_date,
	allergies, conditions,
	emergency_name, emergency_phone, emergency_relation,
	created_at, updated_at`

func (r *MembersRepo) Create(ctx context.Context, m members.Member) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		m.ID,
		m.OwnerUserID,
		m.Name,
		string(m.Relationship),
		m.NIC,
		m.Phone,
		string(m.BloodGroup),
		m.HeightCM,
		m.WeightKG,
		toNullTime(m.BirthDate),
		nonNil(m.Allergies),
		nonNil(m.Conditions),
		m.EmergencyContact.Name,
		m.EmergencyContact.Phone,
		m.EmergencyContact.Relationship,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MembersRepo) Update(ctx context.Context, m members.Member) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE members
		SET
			name = $2,
			relationship = $3,
			nic = $4,
			phone = $5,
			blood_group = $6,
			height_cm = $7,
			weight_kg = $8,
			birth_date = $9,
			allergies = $10,
			conditions = $11,
			emergency_name = $12,
			emergency_phone = $13,
			emergency_relation = $14,
			updated_at = $15
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		string(m.Relationship),
		m.NIC,
		m.Phone,
		string(m.BloodGroup),
		m.HeightCM,
		m.WeightKG,
		toNullTime(m.BirthDate),
		nonNil(m.Allergies),
		nonNil(m.Conditions),
		m.EmergencyContact.Name,
		m.EmergencyContact.Phone,
		m.EmergencyContact.Relationship,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return members.ErrNotFound
	}
	return nil
}

func (r *MembersRepo) GetByID(ctx context.Context, id string) (members.Member, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return members.Member{}, members.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return members.Member{}, members.ErrNotFound
	}
	return m, err
}

func (r *MembersRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]members.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE owner_user_id = $1
		ORDER BY created_at ASC, id ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

func (r *MembersRepo) ListByIDs(ctx context.Context, ids []string) ([]members.Member, error) {
	if len(ids) == 0 {
		return []members.Member{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (members.Member, error) {
	var m members.Member
	var relationship, bloodGroup string
	var birthDate sql.NullTime

	if err := row.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.Name,
		&relationship,
		&m.NIC,
		&m.Phone,
		&bloodGroup,
		&m.HeightCM,
		&m.WeightKG,
		&birthDate,
		textArray(&m.Allergies),
		textArray(&m.Conditions),
		&m.EmergencyContact.Name,
		&m.EmergencyContact.Phone,
		&m.EmergencyContact.Relationship,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return members.Member{}, err
	}

	m.Relationship = members.Relationship(relationship)
	m.BloodGroup = members.BloodGroup(bloodGroup)
	m.BirthDate = fromNullTime(birthDate)
	return m, nil
}

func collectMembers(rows *sql.Rows) ([]members.Member, error) {
	defer rows.Close()

	out := make([]members.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
