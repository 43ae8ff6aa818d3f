package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/actions"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrInvalidConfirmationToken indicates the confirmation link is unknown or already used
type ErrInvalidConfirmationToken struct{}

func (e *ErrInvalidConfirmationToken) Error() string {
	return "invalid or expired confirmation token"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrEmailAlreadyExists:
		return http.StatusConflict
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrUserNotFound:
		return http.StatusNotFound
	case *ErrValidation, *ErrInvalidConfirmationToken:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ResultStatus returns the HTTP status code for an action result.
func ResultStatus(res actions.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Error {
	case actions.CodeUnauthorized:
		return http.StatusUnauthorized
	case actions.CodeNotFound:
		return http.StatusNotFound
	case actions.CodeMissingEmailDraft, actions.CodeMissingRecruiterEmail:
		return http.StatusUnprocessableEntity
	case actions.CodeInvalidStatus:
		return http.StatusConflict
	case actions.CodeInvalidFollowUp, actions.CodeInvalidRequest:
		return http.StatusBadRequest
	case actions.CodeWebhookError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
