package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"carehive/internal/domain/medicines"
)

type MedicinesRepo struct {
	db *sql.DB
}

func NewMedicinesRepo(db *sql.DB) *MedicinesRepo {
	return &MedicinesRepo{db: db}
}

const medicineColumns = `
	id, owner_user_id, name, relation, times, quantity,
	taken, skipped, last_taken_at, created_at, updated_at`

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medicines (`+medicineColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		m.ID,
		m.OwnerUserID,
		m.Name,
		m.Relation,
		nonNil(m.Times),
		m.Quantity,
		m.Taken,
		m.Skipped,
		toNullTime(m.LastTakenAt),
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	m, err := scanMedicine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, err
}

func (r *MedicinesRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]medicines.Medicine, error) {
	return r.list(ctx, `WHERE owner_user_id = $1`, ownerUserID)
}

func (r *MedicinesRepo) ListByRelation(ctx context.Context, relation string) ([]medicines.Medicine, error) {
	return r.list(ctx, `WHERE relation = $1`, relation)
}

func (r *MedicinesRepo) ListAll(ctx context.Context) ([]medicines.Medicine, error) {
	return r.list(ctx, ``)
}

// Increment es un único UPDATE ... RETURNING; el contador se suma en la base.
func (r *MedicinesRepo) Increment(ctx context.Context, id string, action medicines.Action, at time.Time) (medicines.Medicine, error) {
	var set string
	switch action {
	case medicines.ActionTaken:
		set = "taken = taken + 1"
	case medicines.ActionSkip:
		set = "skipped = skipped + 1"
	default:
		return medicines.Medicine{}, errors.New("unknown action " + string(action))
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE medicines
		SET `+set+`, last_taken_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING `+medicineColumns,
		id, at,
	)
	m, err := scanMedicine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, err
}

func (r *MedicinesRepo) list(ctx context.Context, where string, args ...any) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		`+where+`
		ORDER BY created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMedicine(row rowScanner) (medicines.Medicine, error) {
	var m medicines.Medicine
	var lastTakenAt sql.NullTime

	if err := row.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.Name,
		&m.Relation,
		textArray(&m.Times),
		&m.Quantity,
		&m.Taken,
		&m.Skipped,
		&lastTakenAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medicines.Medicine{}, err
	}

	m.LastTakenAt = fromNullTime(lastTakenAt)
	return m, nil
}
