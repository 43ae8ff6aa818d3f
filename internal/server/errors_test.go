package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/actions"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"email exists", &ErrEmailAlreadyExists{Email: "a@b.c"}, http.StatusConflict},
		{"invalid credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"user not found", &ErrUserNotFound{UserID: uuid.New()}, http.StatusNotFound},
		{"validation", &ErrValidation{Field: "email", Message: "required"}, http.StatusBadRequest},
		{"confirmation token", &ErrInvalidConfirmationToken{}, http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		code actions.Code
		want int
	}{
		{actions.CodeUnauthorized, http.StatusUnauthorized},
		{actions.CodeNotFound, http.StatusNotFound},
		{actions.CodeMissingEmailDraft, http.StatusUnprocessableEntity},
		{actions.CodeMissingRecruiterEmail, http.StatusUnprocessableEntity},
		{actions.CodeInvalidStatus, http.StatusConflict},
		{actions.CodeInvalidFollowUp, http.StatusBadRequest},
		{actions.CodeInvalidRequest, http.StatusBadRequest},
		{actions.CodeWebhookError, http.StatusBadGateway},
		{actions.CodeUpdateError, http.StatusInternalServerError},
		{actions.CodeUnknownError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ResultStatus(actions.Result{Error: tt.code}))
		})
	}

	assert.Equal(t, http.StatusOK, ResultStatus(actions.Result{Success: true}))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "email already registered: a@b.c", (&ErrEmailAlreadyExists{Email: "a@b.c"}).Error())
	assert.Equal(t, "invalid email or password", (&ErrInvalidCredentials{}).Error())
	assert.Equal(t, "validation error: email - required", (&ErrValidation{Field: "email", Message: "required"}).Error())
}
