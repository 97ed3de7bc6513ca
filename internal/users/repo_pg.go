package users

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, name, image_url, role, current_impersonation_mode, created_at, updated_at`

func (r *PGRepo) UpsertByEmail(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, email, name, image_url, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'USER', now(), now())
ON CONFLICT (email) DO UPDATE SET
  name = EXCLUDED.name,
  image_url = EXCLUDED.image_url,
  updated_at = now()
RETURNING ` + userColumns
	row := r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.Name),
		nullableString(user.ImageURL),
	)
	return scanUser(row)
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) SetImpersonationMode(ctx context.Context, userID string, mode ImpersonationMode) (User, error) {
	const query = `
UPDATE users
SET current_impersonation_mode = $1, updated_at = now()
WHERE id = $2
RETURNING ` + userColumns
	return scanUser(r.DB.QueryRowContext(ctx, query, string(mode), userID))
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	var name sql.NullString
	var imageURL sql.NullString
	var role string
	var mode sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&name,
		&imageURL,
		&role,
		&mode,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Role = Role(role)
	if name.Valid {
		user.Name = name.String
	}
	if imageURL.Valid {
		user.ImageURL = imageURL.String
	}
	if mode.Valid {
		user.CurrentImpersonationMode = ImpersonationMode(mode.String)
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
