package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an in-app message. Broadcast events are fanned out to one row per teen.
type Notification struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	TeenID    string         `json:"teen_id" gorm:"not null;index"`
	Type      string         `json:"type" gorm:"not null"`
	Title     string         `json:"title"`
	Body      string         `json:"body" gorm:"type:text"`
	Data      datatypes.JSON `json:"data"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
}
