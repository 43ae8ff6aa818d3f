package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/postdesk/internal/query"
	"github.com/jonathan/postdesk/internal/workflow"
)

// PostsTable is the table holding posts
const PostsTable = "posts"

// PostColumns is the column list scanned by scanPost, in order
var PostColumns = []string{
	"id", "title", "content", "status", "pub_date", "link", "image_url",
	"hashtags", "platforms", "created_at", "updated_at",
}

var postSelect = "SELECT " + strings.Join(PostColumns, ", ") + " FROM " + PostsTable

func scanPost(row pgx.CollectableRow) (Post, error) {
	var p Post
	var status string
	err := row.Scan(&p.ID, &p.Title, &p.Content, &status, &p.PubDate, &p.Link,
		&p.ImageURL, &p.Hashtags, &p.Platforms, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Post{}, err
	}
	p.Status = workflow.PostStatus(status)
	return p, nil
}

// ListPosts returns one page of posts matching q and the exact number of
// matching rows
func (db *DB) ListPosts(ctx context.Context, q *query.Builder) ([]Post, int, error) {
	return listPage(ctx, db, q, PostsTable, PostColumns, scanPost)
}

// GetPost retrieves a post by ID, or nil if it does not exist
func (db *DB) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	rows, err := db.pool.Query(ctx, postSelect+" WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &p, nil
}

// CreatePost inserts a pending post
func (db *DB) CreatePost(ctx context.Context, input *PostCreateInput) (*Post, error) {
	rows, err := db.pool.Query(ctx,
		`INSERT INTO posts (title, content, pub_date, link, image_url, hashtags)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+strings.Join(PostColumns, ", "),
		input.Title, input.Content, input.PubDate, input.Link, input.ImageURL, input.Hashtags,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &p, nil
}

// TransitionPost applies a status change guarded by the expected current
// status. It returns false when no row matched.
func (db *DB) TransitionPost(ctx context.Context, t PostTransition) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE posts
		 SET status = $1, image_url = COALESCE($2, image_url), updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		string(t.To), t.ImageURL, t.ID, string(t.From),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update post status: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// UpdatePost applies a partial update of the editable fields. It returns
// false when the post does not exist.
func (db *DB) UpdatePost(ctx context.Context, id uuid.UUID, u PostUpdate) (bool, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Content != nil {
		set("content", *u.Content)
	}
	switch {
	case u.Link != nil:
		set("link", *u.Link)
	case u.ClearLink:
		sets = append(sets, "link = NULL")
	}
	switch {
	case u.ImageURL != nil:
		set("image_url", *u.ImageURL)
	case u.ClearImageURL:
		sets = append(sets, "image_url = NULL")
	}
	switch {
	case u.Hashtags != nil:
		set("hashtags", *u.Hashtags)
	case u.ClearHashtags:
		sets = append(sets, "hashtags = NULL")
	}
	if u.Platforms != nil {
		set("platforms", *u.Platforms)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE posts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update post: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// DeletePost removes a post
func (db *DB) DeletePost(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}
