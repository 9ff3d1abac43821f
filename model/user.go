package model

import "time"

// Teen is a participant account. Only the identifier is used by the progress engine.
type Teen struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Email     string     `json:"email" gorm:"uniqueIndex;not null"`
	Name      string     `json:"name" gorm:"not null"`
	Password  string     `json:"-"`
	Age       int        `json:"age"`
	State     string     `json:"state"`
	IsPublic  bool       `json:"is_public" gorm:"default:false"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Staff struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Email     string     `json:"email" gorm:"uniqueIndex;not null"`
	Name      string     `json:"name"`
	Password  string     `json:"-"`
	Role      StaffRole  `json:"role" gorm:"not null;default:STAFF"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
