package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"carehive/internal/domain/appointments"
)

type AppointmentsRepo struct {
	db *sql.DB
}

func NewAppointmentsRepo(db *sql.DB) *AppointmentsRepo {
	return &AppointmentsRepo{db: db}
}

const appointmentColumns = `
	id, member_id, doctor, reason, scheduled_at, time,
	notes, status, type, created_by, created_at, updated_at`

func (r *AppointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		a.ID,
		a.MemberID,
		a.Doctor,
		a.Reason,
		a.ScheduledAt,
		a.Time,
		a.Notes,
		string(a.Status),
		string(a.Type),
		a.CreatedBy,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *AppointmentsRepo) Update(ctx context.Context, a appointments.Appointment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET
			notes = $2,
			status = $3,
			updated_at = $4
		WHERE id = $1
	`,
		a.ID,
		a.Notes,
		string(a.Status),
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return appointments.ErrNotFound
	}
	return nil
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return appointments.Appointment{}, appointments.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	return a, err
}

func (r *AppointmentsRepo) ListByMember(ctx context.Context, memberID string) ([]appointments.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE member_id = $1
		ORDER BY scheduled_at ASC, id ASC
	`, memberID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentsRepo) ListUpcoming(ctx context.Context, memberIDs []string, from time.Time, limit int) ([]appointments.Appointment, error) {
	if len(memberIDs) == 0 {
		return []appointments.Appointment{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE member_id = ANY($1)
		  AND status IN ('scheduled', 'upcoming')
		  AND scheduled_at >= $2
		ORDER BY scheduled_at ASC, id ASC
		LIMIT $3
	`, memberIDs, from, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func scanAppointment(row rowScanner) (appointments.Appointment, error) {
	var a appointments.Appointment
	var status, typ string

	if err := row.Scan(
		&a.ID,
		&a.MemberID,
		&a.Doctor,
		&a.Reason,
		&a.ScheduledAt,
		&a.Time,
		&a.Notes,
		&status,
		&typ,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return appointments.Appointment{}, err
	}

	a.Status = appointments.Status(status)
	a.Type = appointments.Type(typ)
	return a, nil
}

func collectAppointments(rows *sql.Rows) ([]appointments.Appointment, error) {
	defer rows.Close()

	out := make([]appointments.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
