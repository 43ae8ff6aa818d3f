package webhook

import (
	"time"

	"github.com/google/uuid"
)

// PostAction is the body sent to the image generation and publish workflows.
type PostAction struct {
	PostID    uuid.UUID `json:"postId" validate:"required"`
	Action    string    `json:"action" validate:"required,oneof=generate_image publish"`
	Platforms []string  `json:"platforms,omitempty" validate:"omitempty,dive,oneof=instagram facebook"`
}

// JobEmail is the body sent to the job email workflow.
type JobEmail struct {
	JobID          uuid.UUID `json:"jobId" validate:"required"`
	RecruiterEmail string    `json:"recruiterEmail" validate:"required,email"`
	RecruiterName  *string   `json:"recruiterName"`
	Company        *string   `json:"company"`
	JobTitle       *string   `json:"jobTitle"`
	EmailDraftLink *string   `json:"emailDraftLink"`
	UserID         uuid.UUID `json:"userId" validate:"required"`
}

// IntakeMetadata describes a submitted job description.
type IntakeMetadata struct {
	CharacterCount int `json:"characterCount"`
	WordCount      int `json:"wordCount"`
}

// JobIntakeRequest is the body sent to the job intake workflow.
type JobIntakeRequest struct {
	JobDescription string         `json:"jobDescription" validate:"required"`
	Action         string         `json:"action" validate:"required,oneof=send save"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       IntakeMetadata `json:"metadata"`
}
