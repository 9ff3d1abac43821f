package model

import "time"

// Progress is derived from submissions and always recomputable. It carries no
// update timestamp so that recomputing an unchanged pair yields the same row.
type Progress struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	TeenID         string     `json:"teen_id" gorm:"not null;uniqueIndex:idx_progress_teen_challenge"`
	ChallengeID    string     `json:"challenge_id" gorm:"not null;uniqueIndex:idx_progress_teen_challenge"`
	TasksTotal     int        `json:"tasks_total"`
	TasksCompleted int        `json:"tasks_completed"`
	Percentage     int        `json:"percentage"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TeenBadge is the per-teen badge state. Unique per (teen, badge).
type TeenBadge struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	TeenID      string      `json:"teen_id" gorm:"not null;uniqueIndex:idx_teen_badge"`
	BadgeID     string      `json:"badge_id" gorm:"not null;uniqueIndex:idx_teen_badge"`
	Status      BadgeStatus `json:"status" gorm:"not null;default:AVAILABLE"`
	PurchasedAt *time.Time  `json:"purchased_at"`
	EarnedAt    *time.Time  `json:"earned_at"`
	AwardedByID *string     `json:"awarded_by_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Badge *Badge `json:"badge,omitempty" gorm:"foreignKey:BadgeID"`
}

// RaffleEntry is derived from held badges. Unique per (teen, year).
type RaffleEntry struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	TeenID     string    `json:"teen_id" gorm:"not null;uniqueIndex:idx_raffle_teen_year"`
	Year       int       `json:"year" gorm:"not null;uniqueIndex:idx_raffle_teen_year;index"`
	BadgeCount int       `json:"badge_count"`
	IsEligible bool      `json:"is_eligible" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

// RaffleDraw records the one winner of a year's raffle. Written once.
type RaffleDraw struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Year          int       `json:"year" gorm:"not null;uniqueIndex"`
	WinnerTeenID  string    `json:"winner_teen_id" gorm:"not null"`
	EntryID       string    `json:"entry_id"`
	EligibleCount int       `json:"eligible_count"`
	DrawnByID     string    `json:"drawn_by_id"`
	DrawnAt       time.Time `json:"drawn_at"`
}
