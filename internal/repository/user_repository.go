package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

// User is a row of the users table. Account data never leaves the auth
// layer, so the struct stays repository-local instead of living in the
// model package with the booking entities.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

// UserRepo provides access to user accounts.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo backed by db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create hashes the password and inserts a new account, returning its
// id. Emails are normalized to lower case so the unique index on the
// email column catches case-variant duplicates; a collision surfaces
// as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, normalizeEmail(email), hash, role)
	if err != nil {
		if IsDuplicateKey(err) {
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

// GetByEmail fetches an account by normalized email. A missing account
// surfaces as sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	return r.scanUser(r.db.QueryRowContext(ctx, q, normalizeEmail(email)))
}

// GetByID fetches an account by id. A missing account surfaces as
// sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepo) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
