package actions

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/webhook"
	"github.com/jonathan/postdesk/internal/workflow"
	"go.uber.org/zap"
)

// Platforms a post can be published to.
var Platforms = []string{"instagram", "facebook"}

var postVerbs = map[workflow.PostEvent]string{
	workflow.PostApprove:        "approve",
	workflow.PostReject:         "reject",
	workflow.PostImageGenerated: "attach image to",
	workflow.PostPublish:        "publish",
}

// ApprovePost moves a post to approved.
func (s *Service) ApprovePost(ctx context.Context, id uuid.UUID) (res Result) {
	defer s.guard("approve_post", &res)
	return s.transitionPost(ctx, id, workflow.PostApprove, nil, "Post approved successfully")
}

// RejectPost moves a post to rejected. The reason is only logged.
func (s *Service) RejectPost(ctx context.Context, id uuid.UUID, reason string) (res Result) {
	defer s.guard("reject_post", &res)
	res = s.transitionPost(ctx, id, workflow.PostReject, nil, "Post rejected successfully")
	if res.Success {
		s.logger.Info("post rejected", zap.String("post_id", id.String()), zap.String("reason", reason))
	}
	return res
}

func (s *Service) transitionPost(ctx context.Context, id uuid.UUID, event workflow.PostEvent, imageURL *string, success string) Result {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		s.logger.Error("failed to load post", zap.String("post_id", id.String()), zap.Error(err))
		return unknown
	}
	if post == nil {
		return fail(CodeNotFound, "Post not found")
	}

	next, err := workflow.Posts.Next(post.Status, event)
	if err != nil {
		return failf(CodeInvalidStatus, "Cannot %s post. Post status is %q", postVerbs[event], post.Status)
	}

	applied, err := s.posts.TransitionPost(ctx, db.PostTransition{
		ID:       id,
		From:     post.Status,
		To:       next,
		ImageURL: imageURL,
	})
	if err != nil {
		s.logger.Error("failed to update post status",
			zap.String("post_id", id.String()),
			zap.String("event", string(event)),
			zap.Error(err))
		return fail(CodeUpdateError, "Failed to update post status")
	}
	if !applied {
		return fail(CodeInvalidStatus, "Post status changed while processing the request")
	}

	s.logger.Info("post status changed",
		zap.String("post_id", id.String()),
		zap.String("from", string(post.Status)),
		zap.String("to", string(next)))
	return ok(success)
}

// UpdatePost edits the whitelisted fields of a post.
func (s *Service) UpdatePost(ctx context.Context, id uuid.UUID, u db.PostUpdate) (res Result) {
	defer s.guard("update_post", &res)

	if err := s.validate.Struct(u); err != nil {
		return fail(CodeInvalidRequest, "Invalid post update: "+err.Error())
	}
	if u.IsEmpty() {
		return fail(CodeInvalidRequest, "No fields to update")
	}

	found, err := s.posts.UpdatePost(ctx, id, u)
	if err != nil {
		s.logger.Error("failed to update post", zap.String("post_id", id.String()), zap.Error(err))
		return fail(CodeUpdateError, "Failed to update post")
	}
	if !found {
		return fail(CodeNotFound, "Post not found")
	}
	return ok("Post updated successfully")
}

// DispatchPost asks an automation workflow to generate an image for, or
// publish, a post. The post status is left for the workflow's callback.
func (s *Service) DispatchPost(ctx context.Context, id uuid.UUID, endpoint webhook.Endpoint, platforms []string) (res Result) {
	defer s.guard("dispatch_post", &res)

	if endpoint != webhook.GenerateImage && endpoint != webhook.PublishPost {
		return failf(CodeInvalidRequest, "Unsupported post action %q", endpoint)
	}

	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		s.logger.Error("failed to load post", zap.String("post_id", id.String()), zap.Error(err))
		return unknown
	}
	if post == nil {
		return fail(CodeNotFound, "Post not found")
	}

	payload := webhook.PostAction{PostID: id, Action: string(endpoint)}
	switch endpoint {
	case webhook.GenerateImage:
		if !workflow.CanGenerateImage(post.Status) {
			return failf(CodeInvalidStatus, "Cannot generate image. Post status is %q", post.Status)
		}
	case webhook.PublishPost:
		if !workflow.CanPublish(post.Status) {
			return failf(CodeInvalidStatus, "Cannot publish post. Post status is %q", post.Status)
		}
		if len(platforms) == 0 {
			platforms = post.Platforms
		}
		if len(platforms) == 0 {
			return fail(CodeInvalidRequest, "Select at least one platform")
		}
		for _, p := range platforms {
			if !slices.Contains(Platforms, p) {
				return failf(CodeInvalidRequest, "Unsupported platform %q", p)
			}
		}
		payload.Platforms = platforms
	}

	resp, err := s.hooks.Send(ctx, endpoint, payload)
	if err != nil {
		s.logger.Error("post webhook failed",
			zap.String("post_id", id.String()),
			zap.String("endpoint", string(endpoint)),
			zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return unknown
		}
		return webhookFailure(endpoint, err)
	}

	res = ok("Request sent to automation")
	if resp != nil && resp.Body != nil {
		res.Data = resp.Body
	}
	return res
}
