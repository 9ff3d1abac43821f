package model

import (
	"time"

	"gorm.io/datatypes"
)

// Challenge is the monthly themed unit. At most one exists per (year, month).
type Challenge struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Theme       string    `json:"theme"`
	Description string    `json:"description" gorm:"type:text"` // markdown
	Year        int       `json:"year" gorm:"not null;uniqueIndex:idx_challenge_year_month"`
	Month       int       `json:"month" gorm:"not null;uniqueIndex:idx_challenge_year_month"`
	GoLiveAt    time.Time `json:"go_live_at"`
	ClosingAt   time.Time `json:"closing_at"`
	IsPublished bool      `json:"is_published" gorm:"default:false"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:ChallengeID"`
	Badge *Badge `json:"badge,omitempty" gorm:"foreignKey:ChallengeID"`
}

// OpenAt reports whether submissions are accepted at t.
func (c *Challenge) OpenAt(t time.Time) bool {
	if !c.IsPublished || !c.IsActive {
		return false
	}
	if !c.GoLiveAt.IsZero() && t.Before(c.GoLiveAt) {
		return false
	}
	if !c.ClosingAt.IsZero() && t.After(c.ClosingAt) {
		return false
	}
	return true
}

type Task struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	ChallengeID string         `json:"challenge_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	TabName     string         `json:"tab_name"`
	Type        TaskType       `json:"type" gorm:"not null"`
	IsRequired  bool           `json:"is_required" gorm:"not null"`
	MaxScore    int            `json:"max_score" gorm:"not null"`
	Position    int            `json:"position"`
	Options     datatypes.JSON `json:"options"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Badge is the one collectible attached to a challenge. Price is in minor units.
type Badge struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ChallengeID string    `json:"challenge_id" gorm:"not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Price       int64     `json:"price" gorm:"not null"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Challenge *Challenge `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`
}
