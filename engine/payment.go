package engine

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const (
	ReferencePrefix = "BDG-"
	DefaultCurrency = "IDR"
	GatewayProvider = "midtrans"
)

type CheckoutRequest struct {
	Reference string
	Amount    int64
	TeenID    string
	TeenName  string
	TeenEmail string
	ItemID    string
	ItemName  string
}

type CheckoutSession struct {
	Token       string
	RedirectURL string
}

// PaymentResult is a gateway's view of one transaction.
type PaymentResult struct {
	Reference            string
	Status               model.TransactionStatus
	GatewayTransactionID string
	Method               string
	Amount               int64
}

type Purchase struct {
	Transaction *model.Transaction `json:"transaction"`
	Token       string             `json:"token"`
	RedirectURL string             `json:"redirect_url"`
}

// PaymentOutcome reports what applying a payment result changed. Applied is false
// for duplicate deliveries.
type PaymentOutcome struct {
	Transaction *model.Transaction `json:"transaction"`
	Applied     bool               `json:"applied"`
	Badge       *model.TeenBadge   `json:"badge,omitempty"`
}

// GatewayNotification is the webhook body sent by the payment gateway.
type GatewayNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	StatusCode        string `json:"status_code"`
}

func (n GatewayNotification) Result() PaymentResult {
	return PaymentResult{
		Reference:            n.OrderID,
		Status:               MapGatewayStatus(n.TransactionStatus, n.FraudStatus),
		GatewayTransactionID: n.TransactionID,
		Method:               n.PaymentType,
		Amount:               ParseGrossAmount(n.GrossAmount),
	}
}

// MapGatewayStatus translates the gateway's transaction and fraud status.
func MapGatewayStatus(transactionStatus, fraudStatus string) model.TransactionStatus {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		if strings.EqualFold(fraudStatus, "challenge") {
			return model.TransactionPending
		}
		return model.TransactionSuccess
	case "settlement":
		return model.TransactionSuccess
	case "deny", "failure":
		return model.TransactionFailed
	case "cancel":
		return model.TransactionCancelled
	case "expire":
		return model.TransactionExpired
	case "refund", "partial_refund":
		return model.TransactionRefunded
	}
	return model.TransactionPending
}

// ParseGrossAmount reads amounts such as "50000.00". Unparseable input yields 0.
func ParseGrossAmount(v string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f))
}

// Sign returns the hex HMAC-SHA512 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time. An empty secret never verifies.
func VerifySignature(secret, payload []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), given)
}

// transitionSources lists the states a transaction may leave to reach target.
// SUCCESS is entered at most once and only REFUNDED may follow it.
func transitionSources(target model.TransactionStatus) []model.TransactionStatus {
	switch target {
	case model.TransactionSuccess:
		return []model.TransactionStatus{
			model.TransactionPending, model.TransactionFailed,
			model.TransactionCancelled, model.TransactionExpired,
		}
	case model.TransactionRefunded:
		return []model.TransactionStatus{model.TransactionSuccess}
	case model.TransactionFailed, model.TransactionCancelled, model.TransactionExpired:
		return []model.TransactionStatus{model.TransactionPending}
	}
	return nil
}

// InitializePurchase opens a pending transaction for a badge and a hosted checkout.
func (e *Engine) InitializePurchase(ctx context.Context, teenID, badgeID string) (*Purchase, error) {
	if e.checkout == nil {
		return nil, shared.NewDependencyError(nil, "payment gateway is not configured")
	}

	badge, err := e.store.GetBadge(ctx, badgeID)
	if err != nil {
		return nil, lookupError(err, "badge")
	}
	if !badge.IsActive {
		return nil, shared.NewConflictError(nil, "badge is not on sale")
	}
	teen, err := e.store.GetTeen(ctx, teenID)
	if err != nil {
		return nil, lookupError(err, "teen")
	}

	if existing, err := e.store.GetTeenBadge(ctx, teenID, badgeID); err == nil {
		if existing.Status.Held() {
			return nil, shared.NewConflictError(nil, errAlreadyPurchased)
		}
	} else if !isNotFound(err) {
		return nil, shared.NewInternalError(err, "failed to load teen badge")
	}

	now := e.now()
	tx := &model.Transaction{
		ID:        newID(),
		Reference: ReferencePrefix + newID(),
		TeenID:    teenID,
		BadgeID:   badgeID,
		Amount:    badge.Price,
		Currency:  DefaultCurrency,
		Status:    model.TransactionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateTransaction(ctx, tx); err != nil {
		return nil, shared.NewInternalError(err, "failed to create transaction")
	}

	session, err := e.checkout.CreateCheckout(ctx, CheckoutRequest{
		Reference: tx.Reference,
		Amount:    tx.Amount,
		TeenID:    teen.ID,
		TeenName:  teen.Name,
		TeenEmail: teen.Email,
		ItemID:    badge.ID,
		ItemName:  badge.Name,
	})
	if err != nil {
		if _, markErr := e.store.UpdateTransactionStatus(ctx, tx.Reference, TransactionUpdate{
			Status: model.TransactionFailed,
			At:     e.now(),
		}, model.TransactionPending); markErr != nil {
			log.WithError(markErr).WithField("reference", tx.Reference).Warn("Failed to mark transaction failed")
		}
		return nil, shared.NewDependencyError(err, "payment gateway is unavailable")
	}

	if err := e.store.AttachCheckout(ctx, tx.Reference, session.Token, session.RedirectURL); err != nil {
		return nil, shared.NewInternalError(err, "failed to save checkout")
	}
	tx.CheckoutToken = session.Token
	tx.RedirectURL = session.RedirectURL

	return &Purchase{Transaction: tx, Token: session.Token, RedirectURL: session.RedirectURL}, nil
}

// ConfirmPurchase asks the gateway for the current status of reference and applies it.
// teenID limits the call to the buyer; staff pass an empty teenID.
func (e *Engine) ConfirmPurchase(ctx context.Context, reference, teenID string) (*PaymentOutcome, error) {
	if e.checkout == nil {
		return nil, shared.NewDependencyError(nil, "payment gateway is not configured")
	}
	tx, err := e.store.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, lookupError(err, "transaction")
	}
	if teenID != "" && tx.TeenID != teenID {
		return nil, shared.NewForbiddenError(nil, "transaction belongs to another teen")
	}

	result, err := e.checkout.FetchStatus(ctx, reference)
	if err != nil {
		return nil, shared.NewDependencyError(err, "failed to verify transaction with gateway")
	}
	return e.ApplyPaymentResult(ctx, *result)
}

// HandlePaymentWebhook authenticates a gateway delivery and applies it. A bad
// signature changes nothing.
func (e *Engine) HandlePaymentWebhook(ctx context.Context, body []byte, signature string) (*PaymentOutcome, error) {
	if !VerifySignature(e.webhookSecret, body, signature) {
		log.WithField("signature", signature).Warn("Rejected webhook with invalid signature")
		return nil, shared.NewUnauthorizedError(nil, "invalid webhook signature")
	}

	var notification GatewayNotification
	if err := sonic.Unmarshal(body, &notification); err != nil {
		return nil, shared.NewBadRequestError(err, "invalid webhook payload")
	}
	if notification.OrderID == "" {
		return nil, shared.NewValidationError("order_id", "order_id is required")
	}

	event := &model.PaymentGatewayEvent{
		ID:         newID(),
		Provider:   GatewayProvider,
		Reference:  notification.OrderID,
		EventType:  notification.TransactionStatus,
		Payload:    body,
		Signature:  signature,
		Status:     model.GatewayEventReceived,
		ReceivedAt: e.now(),
	}
	if err := e.store.RecordGatewayEvent(ctx, event); err != nil {
		log.WithError(err).WithField("reference", event.Reference).Warn("Failed to record gateway event")
	}

	outcome, err := e.ApplyPaymentResult(ctx, notification.Result())

	processedAt := e.now()
	event.ProcessedAt = &processedAt
	switch {
	case err == nil:
		event.Status = model.GatewayEventProcessed
		if !outcome.Applied {
			event.Status = model.GatewayEventIgnored
		}
	case shared.IsErrorType(err, shared.ErrTypeNotFound):
		event.Status = model.GatewayEventIgnored
	default:
		msg := err.Error()
		event.Status = model.GatewayEventFailed
		event.Error = &msg
	}
	if saveErr := e.store.SaveGatewayEvent(ctx, event); saveErr != nil {
		log.WithError(saveErr).WithField("reference", event.Reference).Warn("Failed to update gateway event")
	}

	return outcome, err
}

// ApplyPaymentResult moves a transaction to the reported status. The transition is
// keyed by reference, so duplicate deliveries apply once and grant the badge once.
func (e *Engine) ApplyPaymentResult(ctx context.Context, result PaymentResult) (*PaymentOutcome, error) {
	tx, err := e.store.GetTransactionByReference(ctx, result.Reference)
	if err != nil {
		return nil, lookupError(err, "transaction")
	}

	if result.Status == model.TransactionSuccess && result.Amount > 0 && result.Amount != tx.Amount {
		log.WithFields(log.Fields{
			"reference": tx.Reference,
			"expected":  tx.Amount,
			"received":  result.Amount,
		}).Error("Payment amount mismatch")
		return nil, shared.NewValidationError("gross_amount", "paid amount does not match transaction amount")
	}

	if tx.Status == result.Status {
		outcome := &PaymentOutcome{Transaction: tx}
		if tx.Status == model.TransactionSuccess {
			// Heals a grant that failed after the transaction was marked paid.
			outcome.Badge, err = e.grantPurchasedBadge(ctx, tx)
			if err != nil {
				return outcome, err
			}
		}
		return outcome, nil
	}

	now := e.now()
	update := TransactionUpdate{
		Status:               result.Status,
		Method:               result.Method,
		GatewayTransactionID: result.GatewayTransactionID,
		At:                   now,
	}
	if result.Status == model.TransactionSuccess {
		update.PaidAt = &now
	}

	ok, err := e.store.UpdateTransactionStatus(ctx, tx.Reference, update, transitionSources(result.Status)...)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to update transaction")
	}

	current, err := e.store.GetTransactionByReference(ctx, tx.Reference)
	if err != nil {
		return nil, lookupError(err, "transaction")
	}
	outcome := &PaymentOutcome{Transaction: current, Applied: ok}
	if !ok {
		return outcome, nil
	}

	log.WithFields(log.Fields{
		"reference": tx.Reference,
		"from":      tx.Status,
		"to":        result.Status,
	}).Info("Transaction status changed")

	if result.Status == model.TransactionSuccess {
		outcome.Badge, err = e.grantPurchasedBadge(ctx, current)
		if err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (e *Engine) grantPurchasedBadge(ctx context.Context, tx *model.Transaction) (*model.TeenBadge, error) {
	teenBadge, err := e.PurchaseBadge(ctx, tx.TeenID, tx.BadgeID)
	if err == nil {
		return teenBadge, nil
	}
	if !shared.IsErrorType(err, shared.ErrTypeConflict) {
		return nil, err
	}
	existing, err := e.store.GetTeenBadge(ctx, tx.TeenID, tx.BadgeID)
	if err != nil {
		return nil, lookupError(err, "teen badge")
	}
	return existing, nil
}
