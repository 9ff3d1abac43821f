package dto

import "time"

// ==================== AUTHENTICATION REQUEST DTOs ====================

type RegisterTeenRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ayo@example.com"`
	Name     string `json:"name" validate:"required,min=2,max=80" example:"Ayo Balogun"`
	Password string `json:"password" validate:"required,strong_password" example:"SecurePass123!"`
	Age      int    `json:"age" validate:"required,min=10,max=19" example:"15"`
	State    string `json:"state" validate:"omitempty,max=60" example:"Lagos"`

	// ClientIP is filled by the handler for state lookup.
	ClientIP string `json:"-"`
}

func (r RegisterTeenRequest) Validate() error {
	return GetValidator().Struct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ayo@example.com"`
	Password string `json:"password" validate:"required" example:"SecurePass123!"`
}

func (l LoginRequest) Validate() error {
	return GetValidator().Struct(l)
}

// ==================== AUTHENTICATION RESPONSE DTOs ====================

type Principal struct {
	ID    string `json:"id" example:"0190f5c2-7d7e-7c1a-9a43-4e3b0a6f1d20"`
	Email string `json:"email" example:"ayo@example.com"`
	Name  string `json:"name" example:"Ayo Balogun"`
	Role  string `json:"role" example:"TEEN"`
}

type LoginResponse struct {
	User   Principal `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// ==================== ERROR RESPONSE DTOs ====================

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Invalid request"`
	Error   string `json:"error,omitempty" example:"validation failed"`
}

type ValidationError struct {
	Field   string `json:"field" example:"email"`
	Message string `json:"message" example:"invalid email format"`
}

type ValidationErrorResponse struct {
	Code    int               `json:"code" example:"400"`
	Message string            `json:"message" example:"Validation failed"`
	Errors  []ValidationError `json:"errors"`
}

// ==================== PAGINATION DTOs ====================

type PaginationRequest struct {
	Page  int `json:"page" query:"page" validate:"omitempty,min=1" example:"1"`
	Limit int `json:"limit" query:"limit" validate:"omitempty,min=1,max=100" example:"20"`
}

func (p PaginationRequest) Validate() error {
	return GetValidator().Struct(p)
}

type PaginationResponse struct {
	Page       int   `json:"page" example:"1"`
	Limit      int   `json:"limit" example:"20"`
	Total      int64 `json:"total" example:"100"`
	TotalPages int   `json:"total_pages" example:"5"`
	HasNext    bool  `json:"has_next" example:"true"`
	HasPrev    bool  `json:"has_prev" example:"false"`
}

func NewPaginationResponse(page, limit int, total int64) PaginationResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationResponse{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ==================== HEALTH CHECK DTOs ====================

type HealthCheckResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2025-01-15T10:30:00Z"`
	Uptime    string    `json:"uptime" example:"2h30m15s"`
}
