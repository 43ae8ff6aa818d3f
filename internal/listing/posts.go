package listing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/filters"
	"github.com/jonathan/postdesk/internal/query"
	"go.uber.org/zap"
)

// PostItem is a post row with a plain-text preview of its content.
type PostItem struct {
	db.Post
	Excerpt string `json:"excerpt"`
}

// PostPage is one page of the post moderation table.
type PostPage = Page[PostItem, filters.PostFilters]

// BuildPostsQuery translates post filters into a query. f must be normalized.
func BuildPostsQuery(f filters.PostFilters) *query.Builder {
	q := query.New()
	if f.Status != "" {
		q.Eq("status", string(f.Status))
	}
	if f.Search != "" {
		q.ContainsAny(f.Search, "title", "content")
	}
	if f.DateFrom != nil {
		q.Gte("created_at", *f.DateFrom)
	}
	if f.DateTo != nil {
		q.Lte("created_at", *f.DateTo)
	}
	return q.OrderBy("created_at", true).Page(f.Page, f.PageSize)
}

// ListPosts returns the page of posts selected by f.
func (s *Service) ListPosts(ctx context.Context, f filters.PostFilters) (*PostPage, error) {
	f = f.Normalize()

	posts, total, err := s.posts.ListPosts(ctx, BuildPostsQuery(f))
	if err != nil {
		s.logger.Error("failed to fetch posts", zap.Error(err), zap.String("query", f.Encode()))
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}

	items := make([]PostItem, len(posts))
	for i, p := range posts {
		items[i] = newPostItem(p)
	}
	return newPage(items, total, f.Page, f.PageSize, f), nil
}

// GetPost returns a single post, or nil if it does not exist.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*PostItem, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	if post == nil {
		return nil, nil
	}
	item := newPostItem(*post)
	return &item, nil
}

func newPostItem(p db.Post) PostItem {
	return PostItem{Post: p, Excerpt: Excerpt(p.Content, ExcerptLength)}
}
