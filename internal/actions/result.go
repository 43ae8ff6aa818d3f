// Package actions implements the moderation and outreach workflow actions.
//
// Every action returns a Result; failures never escape as errors or panics.
package actions

import (
	"errors"
	"fmt"

	"github.com/jonathan/postdesk/internal/webhook"
	"go.uber.org/zap"
)

// Code classifies a failed action.
type Code string

const (
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeNotFound              Code = "NOT_FOUND"
	CodeMissingEmailDraft     Code = "MISSING_EMAIL_DRAFT"
	CodeMissingRecruiterEmail Code = "MISSING_RECRUITER_EMAIL"
	CodeInvalidStatus         Code = "INVALID_STATUS"
	CodeInvalidFollowUp       Code = "INVALID_FOLLOW_UP"
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeWebhookError          Code = "WEBHOOK_ERROR"
	CodeUpdateError           Code = "UPDATE_ERROR"
	CodeUnknownError          Code = "UNKNOWN_ERROR"
)

// Result is the uniform outcome of an action.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   Code   `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func fail(code Code, message string) Result {
	return Result{Success: false, Message: message, Error: code}
}

func failf(code Code, format string, args ...any) Result {
	return fail(code, fmt.Sprintf(format, args...))
}

var unknown = fail(CodeUnknownError, "An unexpected error occurred")

// guard turns a panic inside an action into an UNKNOWN_ERROR result.
func (s *Service) guard(action string, res *Result) {
	if r := recover(); r != nil {
		s.logger.Error("action panicked", zap.String("action", action), zap.Any("panic", r))
		*res = unknown
	}
}

// webhookFailure maps a dispatch error to a WEBHOOK_ERROR result.
func webhookFailure(endpoint webhook.Endpoint, err error) Result {
	var statusErr *webhook.StatusError
	switch {
	case errors.Is(err, webhook.ErrNotConfigured):
		return failf(CodeWebhookError, "Webhook URL for %s not configured", endpoint)
	case errors.As(err, &statusErr):
		return failf(CodeWebhookError, "Webhook failed: %s", statusErr.Status)
	default:
		return fail(CodeWebhookError, "Failed to reach automation webhook")
	}
}
