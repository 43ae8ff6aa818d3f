package actions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/webhook"
	"github.com/jonathan/postdesk/internal/workflow"
	"go.uber.org/zap"
)

// Job description limits for intake, in characters.
const (
	MinDescriptionLength = 50
	MaxDescriptionLength = 5000
)

// Intake actions.
const (
	IntakeSend = "send"
	IntakeSave = "save"
)

// loadJob resolves the caller's job, or returns the failure result.
func (s *Service) loadJob(ctx context.Context, user *uuid.UUID, jobID uuid.UUID) (*db.Job, *Result) {
	if user == nil {
		r := fail(CodeUnauthorized, "You must be logged in")
		return nil, &r
	}
	job, err := s.jobs.GetJobForUser(ctx, jobID, *user)
	if err != nil {
		s.logger.Error("failed to load job", zap.String("job_id", jobID.String()), zap.Error(err))
	}
	if err != nil || job == nil {
		r := fail(CodeNotFound, "Job not found")
		return nil, &r
	}
	return job, nil
}

// SendJobEmail asks the email workflow to send the job's prepared draft.
// The job moves to sent when the workflow confirms through its callback.
func (s *Service) SendJobEmail(ctx context.Context, user *uuid.UUID, jobID uuid.UUID) (res Result) {
	defer s.guard("send_job_email", &res)

	job, failure := s.loadJob(ctx, user, jobID)
	if failure != nil {
		return *failure
	}
	if job.GmailMessageID == nil || *job.GmailMessageID == "" {
		return fail(CodeMissingEmailDraft, "No email draft found for this job")
	}
	if job.RecruiterEmail == nil || *job.RecruiterEmail == "" {
		return fail(CodeMissingRecruiterEmail, "No recruiter email found for this job")
	}
	if !workflow.CanSendEmail(job.Status) {
		return failf(CodeInvalidStatus, "Cannot send email. Job status is %q", job.Status)
	}

	_, err := s.hooks.Send(ctx, webhook.SendEmail, webhook.JobEmail{
		JobID:          job.ID,
		RecruiterEmail: *job.RecruiterEmail,
		RecruiterName:  job.RecruiterName,
		Company:        job.Company,
		JobTitle:       job.Title,
		EmailDraftLink: job.EmailDraftLink,
		UserID:         *user,
	})
	if err != nil {
		s.logger.Error("send email webhook failed", zap.String("job_id", jobID.String()), zap.Error(err))
		return webhookFailure(webhook.SendEmail, err)
	}

	s.logger.Info("job email requested", zap.String("job_id", jobID.String()))
	return ok("Email sent successfully")
}

// ScheduleFollowUp records follow-up n (1 or 2) dated FollowUpDelay from now.
func (s *Service) ScheduleFollowUp(ctx context.Context, user *uuid.UUID, jobID uuid.UUID, n int) (res Result) {
	defer s.guard("schedule_follow_up", &res)

	if user == nil {
		return fail(CodeUnauthorized, "You must be logged in")
	}
	event, err := workflow.FollowUpEvent(n)
	if err != nil {
		return failf(CodeInvalidFollowUp, "Follow-up number must be 1 or 2, got %d", n)
	}

	job, failure := s.loadJob(ctx, user, jobID)
	if failure != nil {
		return *failure
	}

	next, err := workflow.Jobs.Next(job.Status, event)
	if err != nil {
		return failf(CodeInvalidStatus, "Cannot schedule follow-up %d. Job status is %q", n, job.Status)
	}

	applied, err := s.jobs.ScheduleJobFollowUp(ctx, db.FollowUpUpdate{
		ID:     job.ID,
		UserID: *user,
		From:   job.Status,
		To:     next,
		Count:  n,
		Date:   s.now().Add(FollowUpDelay),
	})
	if err != nil {
		s.logger.Error("failed to schedule follow-up", zap.String("job_id", jobID.String()), zap.Error(err))
		return fail(CodeUpdateError, "Failed to schedule follow-up")
	}
	if !applied {
		return fail(CodeInvalidStatus, "Job status changed while processing the request")
	}

	return ok(fmt.Sprintf("Follow-up %d scheduled successfully", n))
}

// SubmitJobIntake forwards a pasted job description to the intake workflow.
// action is IntakeSend or IntakeSave.
func (s *Service) SubmitJobIntake(ctx context.Context, user *uuid.UUID, description, action string) (res Result) {
	defer s.guard("submit_job_intake", &res)

	if user == nil {
		return fail(CodeUnauthorized, "You must be logged in")
	}
	description = strings.TrimSpace(description)
	chars := utf8.RuneCountInString(description)
	switch {
	case chars < MinDescriptionLength:
		return failf(CodeInvalidRequest, "Job description must be at least %d characters", MinDescriptionLength)
	case chars > MaxDescriptionLength:
		return failf(CodeInvalidRequest, "Job description must be at most %d characters", MaxDescriptionLength)
	}
	if action != IntakeSend && action != IntakeSave {
		return failf(CodeInvalidRequest, "Unsupported intake action %q", action)
	}

	_, err := s.hooks.Send(ctx, webhook.JobIntake, webhook.JobIntakeRequest{
		JobDescription: description,
		Action:         action,
		Timestamp:      s.now().UTC(),
		Metadata: webhook.IntakeMetadata{
			CharacterCount: chars,
			WordCount:      len(strings.Fields(description)),
		},
	})
	if err != nil {
		s.logger.Error("job intake webhook failed", zap.Error(err))
		return webhookFailure(webhook.JobIntake, err)
	}

	if action == IntakeSave {
		return ok("Job description saved successfully")
	}
	return ok("Job description submitted successfully")
}
