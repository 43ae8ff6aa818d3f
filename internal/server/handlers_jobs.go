package server

import (
	"net/http"

	"github.com/jonathan/postdesk/internal/filters"
	"github.com/jonathan/postdesk/internal/server/middleware"
)

// FollowUpRequest is the body of POST /api/jobs/{id}/follow-up.
type FollowUpRequest struct {
	FollowUpNumber int `json:"follow_up_number"`
}

// JobIntakeRequest is the body of POST /api/jobs/intake.
type JobIntakeRequest struct {
	JobDescription string `json:"job_description"`
	Action         string `json:"action"`
}

// handleListJobs returns the caller's filtered, paginated job table
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	f := filters.DecodeJobFilters(r.URL.Query())

	page, err := s.listing.ListJobs(r.Context(), middleware.CurrentUser(r), f)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to fetch jobs")
		return
	}

	jsonResponse(w, http.StatusOK, page)
}

// handleJobFilterOptions returns the distinct values for the job filter dropdowns
func (s *Server) handleJobFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.listing.FilterOptions(r.Context(), middleware.CurrentUser(r))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to fetch filter options")
		return
	}

	jsonResponse(w, http.StatusOK, opts)
}

// handleGetJob retrieves one of the caller's jobs
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job")
	if !ok {
		return
	}

	job, err := s.listing.GetJob(r.Context(), middleware.CurrentUser(r), id)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to fetch job")
		return
	}
	if job == nil {
		errorResponse(w, http.StatusNotFound, "Job not found")
		return
	}

	jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleSendJobEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job")
	if !ok {
		return
	}
	resultResponse(w, s.actions.SendJobEmail(r.Context(), middleware.CurrentUser(r), id))
}

func (s *Server) handleScheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job")
	if !ok {
		return
	}
	var req FollowUpRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resultResponse(w, s.actions.ScheduleFollowUp(r.Context(), middleware.CurrentUser(r), id, req.FollowUpNumber))
}

func (s *Server) handleJobIntake(w http.ResponseWriter, r *http.Request) {
	var req JobIntakeRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resultResponse(w, s.actions.SubmitJobIntake(r.Context(), middleware.CurrentUser(r), req.JobDescription, req.Action))
}
