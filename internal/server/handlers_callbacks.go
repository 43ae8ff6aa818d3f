package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/postdesk/internal/actions"
	"github.com/jonathan/postdesk/internal/schemas"
	"go.uber.org/zap"
)

// callbackBody reads a callback body and validates it against schema. On
// failure it writes the response and returns nil.
func (s *Server) callbackBody(w http.ResponseWriter, r *http.Request, schema string) []byte {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil
		}
		errorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return nil
	}

	if err := schemas.Validate(schema, body); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			jsonResponse(w, http.StatusBadRequest, map[string]any{
				"error":  "Invalid callback payload",
				"errors": validationErr.Errors,
			})
			return nil
		}
		s.logger.Error("callback schema unavailable", zap.String("schema", schema), zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	return body
}

// handlePostStatusCallback applies an image generation or publish outcome
func (s *Server) handlePostStatusCallback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	body := s.callbackBody(w, r, schemas.PostStatus)
	if body == nil {
		return
	}

	var cb actions.PostCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	resultResponse(w, s.actions.ApplyPostCallback(r.Context(), id, cb))
}

// handleJobSentCallback records that the outreach email left the mailbox
func (s *Server) handleJobSentCallback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job")
	if !ok {
		return
	}
	body := s.callbackBody(w, r, schemas.JobSent)
	if body == nil {
		return
	}

	var cb actions.JobSentCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	resultResponse(w, s.actions.ApplyJobSent(r.Context(), id, cb))
}
