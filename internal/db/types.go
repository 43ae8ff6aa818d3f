package db

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/workflow"
)

// Post is an RSS-sourced content item awaiting moderation
type Post struct {
	ID        uuid.UUID           `json:"id"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Status    workflow.PostStatus `json:"status"`
	PubDate   *time.Time          `json:"pub_date"`
	Link      *string             `json:"link"`
	ImageURL  *string             `json:"image_url"`
	Hashtags  []string            `json:"hashtags"`
	Platforms []string            `json:"platforms,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// PostCreateInput holds the fields of a newly ingested post
type PostCreateInput struct {
	Title    string
	Content  string
	PubDate  *time.Time
	Link     *string
	ImageURL *string
	Hashtags []string
}

// PostUpdate is a partial update of the editable post fields.
// Nil fields are left unchanged. The Clear flags set the nullable columns
// to NULL; decoding sets them for an explicit JSON null.
type PostUpdate struct {
	Title     *string   `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Content   *string   `json:"content,omitempty" validate:"omitempty,max=20000"`
	Link      *string   `json:"link,omitempty" validate:"omitempty,url"`
	ImageURL  *string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Hashtags  *[]string `json:"hashtags,omitempty" validate:"omitempty,max=30,dive,min=1,max=100"`
	Platforms *[]string `json:"platforms,omitempty" validate:"omitempty,dive,oneof=instagram facebook"`

	ClearLink     bool `json:"-"`
	ClearImageURL bool `json:"-"`
	ClearHashtags bool `json:"-"`
}

// UnmarshalJSON decodes the update, rejecting unknown fields and recording
// which nullable fields were sent as null.
func (u *PostUpdate) UnmarshalJSON(data []byte) error {
	type plain PostUpdate
	var p plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	isNull := func(key string) bool {
		v, ok := raw[key]
		return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
	}
	p.ClearLink = isNull("link")
	p.ClearImageURL = isNull("image_url")
	p.ClearHashtags = isNull("hashtags")

	*u = PostUpdate(p)
	return nil
}

// IsEmpty reports whether the update changes nothing
func (u PostUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Link == nil &&
		u.ImageURL == nil && u.Hashtags == nil && u.Platforms == nil &&
		!u.ClearLink && !u.ClearImageURL && !u.ClearHashtags
}

// PostTransition moves a post from one status to another. The update only
// applies while the row still holds From.
type PostTransition struct {
	ID       uuid.UUID
	From     workflow.PostStatus
	To       workflow.PostStatus
	ImageURL *string // set alongside the status when not nil
}

// Job is an outreach record for a single job posting
type Job struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	RawPost        string             `json:"raw_post"`
	Title          *string            `json:"title"`
	Company        *string            `json:"company"`
	Location       *string            `json:"location"`
	WorkType       *string            `json:"work_type"`
	Experience     *string            `json:"experience"`
	Timings        *string            `json:"timings"`
	Skills         []string           `json:"skills"`
	RecruiterName  *string            `json:"recruiter_name"`
	RecruiterEmail *string            `json:"recruiter_email"`
	Status         workflow.JobStatus `json:"status"`
	GmailDraftID   *string            `json:"gmail_draft_id"`
	GmailMessageID *string            `json:"gmail_message_id"`
	ThreadID       *string            `json:"thread_id"`
	EmailDraftLink *string            `json:"email_draft_link"`
	SentAt         *time.Time         `json:"sent_at"`
	FollowUpDate   *time.Time         `json:"follow_up_date"`
	FollowUpCount  int                `json:"follow_up_count"`
	CreatedAt      time.Time          `json:"created_at"`
}

// JobCreateInput holds the fields extracted from a job post
type JobCreateInput struct {
	UserID         uuid.UUID
	RawPost        string
	Title          *string
	Company        *string
	Location       *string
	WorkType       *string
	Skills         []string
	RecruiterName  *string
	RecruiterEmail *string
	GmailDraftID   *string
	GmailMessageID *string
	EmailDraftLink *string
}

// FollowUpUpdate records a scheduled follow-up. The update only applies
// while the row is owned by UserID and still holds From.
type FollowUpUpdate struct {
	ID     uuid.UUID
	UserID uuid.UUID
	From   workflow.JobStatus
	To     workflow.JobStatus
	Count  int
	Date   time.Time
}

// JobSentUpdate records the automation's confirmation that an email went out
type JobSentUpdate struct {
	ID             uuid.UUID
	From           workflow.JobStatus
	SentAt         time.Time
	GmailMessageID *string
	ThreadID       *string
}

// User is a dashboard account
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // Never serialize to JSON
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Confirmed reports whether the user has verified their email address
func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}
