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

// JobsTable is the table holding outreach jobs
const JobsTable = "jobs"

// JobColumns is the column list scanned by scanJob, in order
var JobColumns = []string{
	"id", "user_id", "raw_post", "title", "company", "location", "work_type",
	"experience", "timings", "skills", "recruiter_name", "recruiter_email",
	"status", "gmail_draft_id", "gmail_message_id", "thread_id",
	"email_draft_link", "sent_at", "follow_up_date", "follow_up_count", "created_at",
}

var jobSelect = "SELECT " + strings.Join(JobColumns, ", ") + " FROM " + JobsTable

// distinctJobColumns lists the columns DistinctJobValues may read
var distinctJobColumns = map[string]bool{
	"company":   true,
	"location":  true,
	"work_type": true,
}

// ErrUnknownColumn is returned when a distinct lookup names a column outside
// the allowed set
var ErrUnknownColumn = errors.New("unknown column")

func scanJob(row pgx.CollectableRow) (Job, error) {
	var j Job
	var status string
	err := row.Scan(&j.ID, &j.UserID, &j.RawPost, &j.Title, &j.Company, &j.Location,
		&j.WorkType, &j.Experience, &j.Timings, &j.Skills, &j.RecruiterName,
		&j.RecruiterEmail, &status, &j.GmailDraftID, &j.GmailMessageID, &j.ThreadID,
		&j.EmailDraftLink, &j.SentAt, &j.FollowUpDate, &j.FollowUpCount, &j.CreatedAt)
	if err != nil {
		return Job{}, err
	}
	j.Status = workflow.JobStatus(status)
	return j, nil
}

// ListJobs returns one page of jobs matching q and the exact number of
// matching rows. Callers scope q to an owner.
func (db *DB) ListJobs(ctx context.Context, q *query.Builder) ([]Job, int, error) {
	return listPage(ctx, db, q, JobsTable, JobColumns, scanJob)
}

// GetJob retrieves a job by ID regardless of owner, or nil if it does not exist
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	return db.getJob(ctx, jobSelect+" WHERE id = $1", id)
}

// GetJobForUser retrieves a job owned by userID, or nil if there is no such job
func (db *DB) GetJobForUser(ctx context.Context, id, userID uuid.UUID) (*Job, error) {
	return db.getJob(ctx, jobSelect+" WHERE id = $1 AND user_id = $2", id, userID)
}

func (db *DB) getJob(ctx context.Context, sql string, args ...any) (*Job, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	j, err := pgx.CollectExactlyOneRow(rows, scanJob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

// CreateJob inserts a job in the draft_created status
func (db *DB) CreateJob(ctx context.Context, input *JobCreateInput) (*Job, error) {
	rows, err := db.pool.Query(ctx,
		`INSERT INTO jobs (user_id, raw_post, title, company, location, work_type, skills,
		                   recruiter_name, recruiter_email, gmail_draft_id, gmail_message_id, email_draft_link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+strings.Join(JobColumns, ", "),
		input.UserID, input.RawPost, input.Title, input.Company, input.Location, input.WorkType,
		input.Skills, input.RecruiterName, input.RecruiterEmail, input.GmailDraftID,
		input.GmailMessageID, input.EmailDraftLink,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	j, err := pgx.CollectExactlyOneRow(rows, scanJob)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return &j, nil
}

// ScheduleJobFollowUp records a follow-up. It returns false when the job is
// not owned by the user or has left the expected status.
func (db *DB) ScheduleJobFollowUp(ctx context.Context, u FollowUpUpdate) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $1, follow_up_count = $2, follow_up_date = $3
		 WHERE id = $4 AND user_id = $5 AND status = $6`,
		string(u.To), u.Count, u.Date, u.ID, u.UserID, string(u.From),
	)
	if err != nil {
		return false, fmt.Errorf("failed to schedule follow-up: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkJobSent moves a job to sent. It returns false when the job is missing
// or has left the expected status.
func (db *DB) MarkJobSent(ctx context.Context, u JobSentUpdate) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $1, sent_at = $2,
		     gmail_message_id = COALESCE($3, gmail_message_id),
		     thread_id = COALESCE($4, thread_id)
		 WHERE id = $5 AND status = $6`,
		string(workflow.JobSent), u.SentAt, u.GmailMessageID, u.ThreadID, u.ID, string(u.From),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark job sent: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// DistinctJobValues returns the non-null values of column across the user's
// jobs. Values are returned as stored; callers dedupe.
func (db *DB) DistinctJobValues(ctx context.Context, userID uuid.UUID, column string) ([]*string, error) {
	if !distinctJobColumns[column] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	sql, args := query.New().Eq("user_id", userID).NotNull(column).DistinctSQL(JobsTable, column)
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", column, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[*string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s values: %w", column, err)
	}
	return values, nil
}
