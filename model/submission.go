package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Submission is a teen's answer to one task. Unique per (task, teen); resubmission overwrites.
type Submission struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	TaskID       string           `json:"task_id" gorm:"not null;uniqueIndex:idx_submission_task_teen"`
	TeenID       string           `json:"teen_id" gorm:"not null;uniqueIndex:idx_submission_task_teen;index"`
	ChallengeID  string           `json:"challenge_id" gorm:"not null;index"`
	Content      datatypes.JSON   `json:"content"`
	FileURLs     pq.StringArray   `json:"file_urls" gorm:"type:text[]"`
	Status       SubmissionStatus `json:"status" gorm:"not null;default:APPROVED;index"`
	Score        *int             `json:"score"`
	ReviewedByID *string          `json:"reviewed_by_id"`
	ReviewedAt   *time.Time       `json:"reviewed_at"`
	ReviewNote   *string          `json:"review_note"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Task *Task `json:"task,omitempty" gorm:"foreignKey:TaskID"`
}
