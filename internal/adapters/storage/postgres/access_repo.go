package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"carehive/internal/domain/access"
)

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

const grantColumns = `
	id, member_id, owner_user_id, grantee_user_id,
	scopes, status,
	created_at, updated_at, revoked_at`

func (r *AccessGrantsRepo) Create(ctx context.Context, g access.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_grants (`+grantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		g.ID,
		g.MemberID,
		g.OwnerUserID,
		g.GranteeUserID,
		scopesToTextArray(g.Scopes),
		string(g.Status),
		g.CreatedAt,
		g.UpdatedAt,
		toNullTime(g.RevokedAt),
	)
	return err
}

func (r *AccessGrantsRepo) Update(ctx context.Context, g access.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET
			scopes = $2,
			status = $3,
			updated_at = $4,
			revoked_at = $5
		WHERE id = $1
	`,
		g.ID,
		scopesToTextArray(g.Scopes),
		string(g.Status),
		g.UpdatedAt,
		toNullTime(g.RevokedAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return access.ErrNotFound
	}
	return nil
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (access.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return access.Grant{}, access.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM access_grants WHERE id = $1`, id)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Grant{}, access.ErrNotFound
	}
	return g, err
}

func (r *AccessGrantsRepo) ListByMember(ctx context.Context, memberID string) ([]access.Grant, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE member_id = $1
		ORDER BY created_at ASC
	`, memberID)
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

func (r *AccessGrantsRepo) GetActiveGrant(ctx context.Context, memberID, granteeUserID string) (access.Grant, error) {
	memberID = strings.TrimSpace(memberID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if memberID == "" || granteeUserID == "" {
		return access.Grant{}, access.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE member_id = $1
		  AND grantee_user_id = $2
		  AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`, memberID, granteeUserID)

	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Grant{}, access.ErrNotFound
	}
	return g, err
}

func (r *AccessGrantsRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]access.Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE grantee_user_id = $1
		ORDER BY updated_at DESC
	`, granteeUserID)
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

func scanGrant(row rowScanner) (access.Grant, error) {
	var g access.Grant
	var status string
	var scopes []string
	var revokedAt sql.NullTime

	if err := row.Scan(
		&g.ID,
		&g.MemberID,
		&g.OwnerUserID,
		&g.GranteeUserID,
		textArray(&scopes),
		&status,
		&g.CreatedAt,
		&g.UpdatedAt,
		&revokedAt,
	); err != nil {
		return access.Grant{}, err
	}

	g.Status = access.Status(status)
	g.Scopes = textArrayToScopes(scopes)
	g.RevokedAt = fromNullTime(revokedAt)
	return g, nil
}

func collectGrants(rows *sql.Rows) ([]access.Grant, error) {
	defer rows.Close()

	out := make([]access.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scopesToTextArray(in []access.Scope) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func textArrayToScopes(in []string) []access.Scope {
	out := make([]access.Scope, 0, len(in))
	for _, s := range in {
		out = append(out, access.Scope(s))
	}
	return out
}
