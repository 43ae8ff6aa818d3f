package actions

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/webhook"
	"go.uber.org/zap"
)

// FollowUpDelay is how far ahead a scheduled follow-up is dated.
const FollowUpDelay = 7 * 24 * time.Hour

// PostStore reads and mutates posts.
type PostStore interface {
	GetPost(ctx context.Context, id uuid.UUID) (*db.Post, error)
	TransitionPost(ctx context.Context, t db.PostTransition) (bool, error)
	UpdatePost(ctx context.Context, id uuid.UUID, u db.PostUpdate) (bool, error)
}

// JobStore reads and mutates jobs.
type JobStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*db.Job, error)
	GetJobForUser(ctx context.Context, id, userID uuid.UUID) (*db.Job, error)
	ScheduleJobFollowUp(ctx context.Context, u db.FollowUpUpdate) (bool, error)
	MarkJobSent(ctx context.Context, u db.JobSentUpdate) (bool, error)
}

// Dispatcher sends payloads to automation workflows.
type Dispatcher interface {
	Send(ctx context.Context, endpoint webhook.Endpoint, payload any) (*webhook.Response, error)
}

// Service runs workflow actions against the stores and the dispatcher.
type Service struct {
	posts    PostStore
	jobs     JobStore
	hooks    Dispatcher
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an action service. A nil logger disables logging.
func NewService(posts PostStore, jobs JobStore, hooks Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		posts:    posts,
		jobs:     jobs,
		hooks:    hooks,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}
