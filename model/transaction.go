package model

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction tracks one badge checkout. Reference is the gateway order id.
type Transaction struct {
	ID                   string            `json:"id" gorm:"primaryKey"`
	Reference            string            `json:"reference" gorm:"not null;uniqueIndex"`
	TeenID               string            `json:"teen_id" gorm:"not null;index"`
	BadgeID              string            `json:"badge_id" gorm:"not null;index"`
	Amount               int64             `json:"amount"`
	Currency             string            `json:"currency" gorm:"default:IDR"`
	Status               TransactionStatus `json:"status" gorm:"not null;default:PENDING;index"`
	Method               string            `json:"method"`
	GatewayTransactionID *string           `json:"gateway_transaction_id"`
	CheckoutToken        string            `json:"-"`
	RedirectURL          string            `json:"redirect_url"`
	PaidAt               *time.Time        `json:"paid_at"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// PaymentGatewayEvent is the raw log of every webhook delivery.
type PaymentGatewayEvent struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	Provider    string         `json:"provider" gorm:"not null"`
	Reference   string         `json:"reference" gorm:"index"`
	EventType   string         `json:"event_type"`
	Payload     datatypes.JSON `json:"payload"`
	Signature   string         `json:"signature"`
	Status      string         `json:"status"` // received | processed | ignored | failed
	Error       *string        `json:"error"`
	ReceivedAt  time.Time      `json:"received_at"`
	ProcessedAt *time.Time     `json:"processed_at"`
}

const (
	GatewayEventReceived  = "received"
	GatewayEventProcessed = "processed"
	GatewayEventIgnored   = "ignored"
	GatewayEventFailed    = "failed"
)
