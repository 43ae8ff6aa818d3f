// Package server provides the HTTP REST API for the postdesk dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/config"
	"github.com/jonathan/postdesk/internal/db"
	"go.uber.org/zap"
)

// UserStore is the subset of the database used for accounts.
type UserStore interface {
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, email, passwordHash, confirmationToken string) (*db.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	ConfirmEmail(ctx context.Context, token string) (*db.User, error)
}

// UserService provides business logic for user authentication operations
type UserService struct {
	db             UserStore
	passwordConfig *config.PasswordConfig
	logger         *zap.Logger
	newToken       func() string
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(store UserStore, passwordConfig *config.PasswordConfig, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		db:             store,
		passwordConfig: passwordConfig,
		logger:         logger,
		newToken:       uuid.NewString,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unconfirmed account. The confirmation token is logged
// for the operator to relay; there is no mailer.
func (s *UserService) Signup(ctx context.Context, email, password string) (*db.User, error) {
	email = normalizeEmail(email)

	exists, err := s.db.CheckEmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	passwordHash, err := s.passwordConfig.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token := s.newToken()
	user, err := s.db.CreateUser(ctx, email, passwordHash, token)
	if err != nil {
		// Lost a race with a concurrent signup for the same address
		if errors.Is(err, db.ErrEmailTaken) {
			return nil, &ErrEmailAlreadyExists{Email: email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("confirmation_token", token),
	)
	return user, nil
}

// Login authenticates a user and returns user data
func (s *UserService) Login(ctx context.Context, email, password string) (*db.User, error) {
	user, err := s.db.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Same error for unknown email and wrong password
	if user == nil || !s.passwordConfig.VerifyPassword(password, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	return user, nil
}

// Confirm marks the account holding token as confirmed.
func (s *UserService) Confirm(ctx context.Context, token string) (*db.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &ErrInvalidConfirmationToken{}
	}
	user, err := s.db.ConfirmEmail(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm email: %w", err)
	}
	if user == nil {
		return nil, &ErrInvalidConfirmationToken{}
	}
	return user, nil
}

// Me returns the account of the authenticated user.
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*db.User, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &ErrUserNotFound{UserID: userID}
	}
	return user, nil
}
