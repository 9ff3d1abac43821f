package dto

import (
	"time"

	"github.com/Calstins/teensha/model"
)

type TeenProfileResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Age       int        `json:"age"`
	State     string     `json:"state,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type ProgressListResponse struct {
	Progress []model.Progress `json:"progress"`
}

type BadgeCollectionResponse struct {
	Badges []model.TeenBadge `json:"badges"`
	Held   int               `json:"held"`
}

type RaffleStatusResponse struct {
	Entry    *model.RaffleEntry `json:"entry"`
	Required int                `json:"required"`
}

type PurchaseResponse struct {
	Reference   string `json:"reference" example:"BDG-0190f5c2-7d7e-7c1a-9a43-4e3b0a6f1d20"`
	Token       string `json:"token" example:"66e4fa55-fdac-4ef9-91b5-733b97d1b862"`
	RedirectURL string `json:"redirect_url" example:"https://app.sandbox.midtrans.com/snap/v3/redirection/66e4fa55"`
	Amount      int64  `json:"amount" example:"50000"`
	Currency    string `json:"currency" example:"IDR"`
}

type NotificationListResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Pagination    PaginationResponse   `json:"pagination"`
}

type NotificationQuery struct {
	PaginationRequest
	UnreadOnly bool `query:"unread_only" example:"true"`
}

func (q NotificationQuery) Validate() error {
	return GetValidator().Struct(q)
}
