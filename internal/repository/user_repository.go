package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/utils"
)

// UserRepo persists user accounts.  Emails are normalized to lower
// case before every read and write so lookups are case-insensitive.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, name, picture, password_hash, role, created_at`

// Create hashes the password and inserts a user, returning its ID.
// Duplicate emails report ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, name, picture, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO users (email, name, picture, password_hash, role) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, email, name, picture, hash, role)
	if err != nil {
		// MySQL duplicate-key error
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
}

// GetByID fetches a user by its identifier.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users, oldest first.  Admin-only view.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateRole changes a user's role or reports ErrUserNotFound.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
