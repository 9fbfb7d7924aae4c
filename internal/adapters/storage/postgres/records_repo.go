package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"carehive/internal/domain/records"
)

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

const recordColumns = `
	id, member_id, type, name, date,
	description, doctor_name, file_url, tags,
	author_type, author_id, recorded_at, status`

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		rec.ID,
		rec.MemberID,
		string(rec.Type),
		rec.Name,
		rec.Date,
		rec.Description,
		rec.DoctorName,
		rec.FileURL,
		nonNil(rec.Tags),
		string(rec.Author.Type),
		rec.Author.ID,
		rec.RecordedAt,
		string(rec.Status),
	)
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, records.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, records.ErrNotFound
	}
	return rec, err
}

// ListByMember arma el WHERE según los filtros presentes.
func (r *RecordsRepo) ListByMember(ctx context.Context, memberID string, filter records.ListFilter) ([]records.Record, error) {
	where := []string{"member_id = $1"}
	args := []any{memberID}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.ActiveOnly {
		add("status = $%d", string(records.StatusActive))
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		add("type = ANY($%d)", types)
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR doctor_name ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, recorded_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordsRepo) Void(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE records SET status = $2 WHERE id = $1`, id, string(records.StatusVoided))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

func scanRecord(row rowScanner) (records.Record, error) {
	var rec records.Record
	var typ, authorType, status string

	if err := row.Scan(
		&rec.ID,
		&rec.MemberID,
		&typ,
		&rec.Name,
		&rec.Date,
		&rec.Description,
		&rec.DoctorName,
		&rec.FileURL,
		textArray(&rec.Tags),
		&authorType,
		&rec.Author.ID,
		&rec.RecordedAt,
		&status,
	); err != nil {
		return records.Record{}, err
	}

	rec.Type = records.RecordType(typ)
	rec.Author.Type = records.AuthorType(authorType)
	rec.Status = records.Status(status)
	return rec, nil
}
