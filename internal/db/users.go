package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrEmailTaken is returned by CreateUser when the email is already registered
var ErrEmailTaken = errors.New("email already registered")

const userColumns = "id, email, password_hash, email_confirmed_at, created_at, updated_at"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailConfirmedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts an unconfirmed user holding a pending confirmation token
func (db *DB) CreateUser(ctx context.Context, email, passwordHash, confirmationToken string) (*User, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, confirmation_token)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		email, passwordHash, confirmationToken,
	)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by ID, or nil if not found
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, or nil if not found
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// CheckEmailExists reports whether a user with the email exists
func (db *DB) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ConfirmEmail marks the user holding token as confirmed and clears the
// token. It returns nil when the token matches no user.
func (db *DB) ConfirmEmail(ctx context.Context, token string) (*User, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE users
		 SET email_confirmed_at = NOW(), confirmation_token = NULL, updated_at = NOW()
		 WHERE confirmation_token = $1
		 RETURNING `+userColumns,
		token,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm email: %w", err)
	}
	return u, nil
}
