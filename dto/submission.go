package dto

import (
	"github.com/Calstins/teensha/model"
)

// SubmitTaskRequest is the JSON form of a submission. Multipart submissions carry
// the payload in a "payload" field and attachments in "files".
type SubmitTaskRequest struct {
	Payload string `json:"payload" form:"payload" validate:"required" example:"{\"text\":\"I saved 20% of my allowance\"}"`
}

func (r SubmitTaskRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ReviewSubmissionRequest struct {
	Status model.SubmissionStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED" example:"REJECTED"`
	Score  *int                   `json:"score" validate:"omitempty,min=0" example:"7"`
	Note   *string                `json:"note" validate:"omitempty,max=1000" example:"Please add a photo of your budget sheet."`
}

func (r ReviewSubmissionRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ReviewQueueQuery struct {
	PaginationRequest
	Status      model.SubmissionStatus `query:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED" example:"PENDING"`
	ChallengeID string                 `query:"challenge_id" example:"0190f5c2-7d7e-7c1a-9a43-4e3b0a6f1d20"`
}

func (q ReviewQueueQuery) Validate() error {
	return GetValidator().Struct(q)
}

type SubmissionListResponse struct {
	Submissions []model.Submission `json:"submissions"`
	Pagination  PaginationResponse `json:"pagination"`
}
