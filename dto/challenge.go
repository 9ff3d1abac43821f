package dto

import (
	"encoding/json"
	"time"

	"github.com/Calstins/teensha/model"
)

// ==================== CHALLENGE ADMIN DTOs ====================

type ChallengeRequest struct {
	Title       string    `json:"title" validate:"required,max=120" example:"Budget Like a Boss"`
	Theme       string    `json:"theme" validate:"max=120" example:"Financial literacy"`
	Description string    `json:"description" example:"This month you will **plan** a weekly budget."`
	Year        int       `json:"year" validate:"required,min=2000,max=2100" example:"2025"`
	Month       int       `json:"month" validate:"required,min=1,max=12" example:"3"`
	GoLiveAt    time.Time `json:"go_live_at" validate:"required" example:"2025-03-01T00:00:00Z"`
	ClosingAt   time.Time `json:"closing_at" validate:"required,gtfield=GoLiveAt" example:"2025-03-31T23:59:59Z"`
}

func (r ChallengeRequest) Validate() error {
	return GetValidator().Struct(r)
}

type TaskRequest struct {
	Title       string          `json:"title" validate:"required,max=160" example:"Track your spending"`
	Description string          `json:"description" example:"Write down everything you spent this week."`
	TabName     string          `json:"tab_name" validate:"max=40" example:"Week 1"`
	Type        model.TaskType  `json:"type" validate:"required,task_type" example:"TEXT"`
	IsRequired  *bool           `json:"is_required" example:"true"`
	MaxScore    *int            `json:"max_score" validate:"omitempty,min=0,max=1000" example:"10"`
	Position    int             `json:"position" validate:"min=0" example:"1"`
	Options     json.RawMessage `json:"options,omitempty" swaggertype:"object"`
}

func (r TaskRequest) Validate() error {
	return GetValidator().Struct(r)
}

type BadgeRequest struct {
	Name        string `json:"name" validate:"required,max=80" example:"Budget Boss"`
	Description string `json:"description" validate:"max=500" example:"Completed the March budgeting challenge"`
	ImageURL    string `json:"image_url" validate:"omitempty,url" example:"https://cdn.teensha.app/badges/march.png"`
	Price       int64  `json:"price" validate:"min=0" example:"50000"`
}

func (r BadgeRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== CHALLENGE READ DTOs ====================

type ChallengeListQuery struct {
	Year int `query:"year" validate:"omitempty,min=2000,max=2100" example:"2025"`
}

func (q ChallengeListQuery) Validate() error {
	return GetValidator().Struct(q)
}

type ChallengeDetailResponse struct {
	*model.Challenge
	DescriptionHTML string `json:"description_html"`
}
