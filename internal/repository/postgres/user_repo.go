package postgres

import (
	"context"
	"errors"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, pwd_hash, salt_auth, public_key, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &u.SaltAuth, &u.PublicKey, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, pwd_hash, salt_auth, public_key)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.PwdHash, u.SaltAuth, u.PublicKey)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// SearchByEmail returns users whose email contains query (case-insensitive).
func (r *UserRepo) SearchByEmail(ctx context.Context, query string, limit int) ([]model.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE email ILIKE '%' || $1 || '%'
ORDER BY email ASC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &u.SaltAuth, &u.PublicKey, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateName changes the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	const q = `UPDATE users SET name=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the login hash and salt.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash, saltAuth []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, salt_auth=$3, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, pwdHash, saltAuth)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetPublicKeyIfEmpty stores the public key only if currently unset.
func (r *UserRepo) SetPublicKeyIfEmpty(ctx context.Context, id uuid.UUID, publicKey []byte) error {
	const q = `
UPDATE users
SET public_key = $2, updated_at = now()
WHERE id = $1 AND public_key IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, id, publicKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAlreadyExists
	}
	return nil
}
