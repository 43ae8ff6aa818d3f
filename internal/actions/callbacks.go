package actions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/workflow"
	"go.uber.org/zap"
)

// Post callback events reported by the automation workflows.
const (
	CallbackImageGenerated = "image_generated"
	CallbackPublished      = "published"
	CallbackFailed         = "failed"
)

// PostCallback is the body of a post status callback.
type PostCallback struct {
	Event     string   `json:"event"`
	ImageURL  *string  `json:"image_url,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// JobSentCallback is the body of a job email sent callback.
type JobSentCallback struct {
	GmailMessageID *string    `json:"gmail_message_id,omitempty"`
	ThreadID       *string    `json:"thread_id,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// ApplyPostCallback records the outcome of an image generation or publish
// request.
func (s *Service) ApplyPostCallback(ctx context.Context, id uuid.UUID, cb PostCallback) (res Result) {
	defer s.guard("post_callback", &res)

	switch cb.Event {
	case CallbackImageGenerated:
		if cb.ImageURL == nil || *cb.ImageURL == "" {
			return fail(CodeInvalidRequest, "image_url is required for image_generated")
		}
		return s.transitionPost(ctx, id, workflow.PostImageGenerated, cb.ImageURL, "Post image recorded")
	case CallbackPublished:
		return s.transitionPost(ctx, id, workflow.PostPublish, nil, "Post marked as published")
	case CallbackFailed:
		post, err := s.posts.GetPost(ctx, id)
		if err != nil {
			s.logger.Error("failed to load post", zap.String("post_id", id.String()), zap.Error(err))
			return unknown
		}
		if post == nil {
			return fail(CodeNotFound, "Post not found")
		}
		s.logger.Warn("automation reported failure",
			zap.String("post_id", id.String()),
			zap.String("status", string(post.Status)),
			zap.String("message", cb.Message))
		return ok("Failure recorded")
	default:
		return failf(CodeInvalidRequest, "Unsupported callback event %q", cb.Event)
	}
}

// ApplyJobSent moves a job to sent once the email workflow confirms delivery.
func (s *Service) ApplyJobSent(ctx context.Context, id uuid.UUID, cb JobSentCallback) (res Result) {
	defer s.guard("job_sent_callback", &res)

	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		s.logger.Error("failed to load job", zap.String("job_id", id.String()), zap.Error(err))
		return unknown
	}
	if job == nil {
		return fail(CodeNotFound, "Job not found")
	}

	if _, err := workflow.Jobs.Next(job.Status, workflow.JobSend); err != nil {
		return failf(CodeInvalidStatus, "Cannot mark job as sent. Job status is %q", job.Status)
	}

	sentAt := s.now()
	if cb.SentAt != nil {
		sentAt = *cb.SentAt
	}
	applied, err := s.jobs.MarkJobSent(ctx, db.JobSentUpdate{
		ID:             id,
		From:           job.Status,
		SentAt:         sentAt,
		GmailMessageID: cb.GmailMessageID,
		ThreadID:       cb.ThreadID,
	})
	if err != nil {
		s.logger.Error("failed to mark job sent", zap.String("job_id", id.String()), zap.Error(err))
		return fail(CodeUpdateError, "Failed to update job status")
	}
	if !applied {
		return fail(CodeInvalidStatus, "Job status changed while processing the request")
	}
	return ok("Job marked as sent")
}
