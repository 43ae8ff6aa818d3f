package server

import (
	"net/http"

	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/filters"
	"github.com/jonathan/postdesk/internal/webhook"
)

// RejectPostRequest is the optional body of POST /api/posts/{id}/reject.
type RejectPostRequest struct {
	Reason string `json:"reason"`
}

// PublishPostRequest is the optional body of POST /api/posts/{id}/publish.
// Without platforms the post's own selection is used.
type PublishPostRequest struct {
	Platforms []string `json:"platforms"`
}

// handleListPosts returns the filtered, paginated moderation table
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	f := filters.DecodePostFilters(r.URL.Query())

	page, err := s.listing.ListPosts(r.Context(), f)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	jsonResponse(w, http.StatusOK, page)
}

// handleGetPost retrieves a post by its ID
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	post, err := s.listing.GetPost(r.Context(), id)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	if post == nil {
		errorResponse(w, http.StatusNotFound, "Post not found")
		return
	}

	jsonResponse(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	var update db.PostUpdate
	if !decodeBody(w, r, &update, false) {
		return
	}
	resultResponse(w, s.actions.UpdatePost(r.Context(), id, update))
}

func (s *Server) handleApprovePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	resultResponse(w, s.actions.ApprovePost(r.Context(), id))
}

func (s *Server) handleRejectPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	var req RejectPostRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	resultResponse(w, s.actions.RejectPost(r.Context(), id, req.Reason))
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	resultResponse(w, s.actions.DispatchPost(r.Context(), id, webhook.GenerateImage, nil))
}

func (s *Server) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	var req PublishPostRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	resultResponse(w, s.actions.DispatchPost(r.Context(), id, webhook.PublishPost, req.Platforms))
}
