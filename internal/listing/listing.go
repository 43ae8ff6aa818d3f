// Package listing serves the paginated, filterable post and job tables.
package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/filters"
	"github.com/jonathan/postdesk/internal/query"
	"go.uber.org/zap"
)

// PostStore reads posts.
type PostStore interface {
	ListPosts(ctx context.Context, q *query.Builder) ([]db.Post, int, error)
	GetPost(ctx context.Context, id uuid.UUID) (*db.Post, error)
}

// JobStore reads jobs.
type JobStore interface {
	ListJobs(ctx context.Context, q *query.Builder) ([]db.Job, int, error)
	DistinctJobValues(ctx context.Context, userID uuid.UUID, column string) ([]*string, error)
	GetJobForUser(ctx context.Context, id, userID uuid.UUID) (*db.Job, error)
}

// Service answers listing requests.
type Service struct {
	posts  PostStore
	jobs   JobStore
	logger *zap.Logger
}

// NewService creates a listing service. A nil logger disables logging.
func NewService(posts PostStore, jobs JobStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{posts: posts, jobs: jobs, logger: logger}
}

// Page is the common envelope of a listing response.
type Page[T any, F any] struct {
	Data    []T                `json:"data"`
	Meta    filters.Meta       `json:"meta"`
	Window  filters.PageWindow `json:"window"`
	Links   filters.Links      `json:"links"`
	Filters F                  `json:"filters"`
	Query   string             `json:"query"`
}

type pageFilters interface {
	filters.Pager
	Encode() string
}

func newPage[T any, F pageFilters](data []T, total, page, pageSize int, f F) *Page[T, F] {
	if data == nil {
		data = []T{}
	}
	meta := filters.NewMeta(total, page, pageSize)
	return &Page[T, F]{
		Data:    data,
		Meta:    meta,
		Window:  filters.Window(meta.Page, meta.TotalPages, filters.MaxVisiblePages),
		Links:   filters.NewLinks(f, meta),
		Filters: f,
		Query:   f.Encode(),
	}
}
