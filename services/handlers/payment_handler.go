package handlers

import (
	"net/http"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries hex(HMAC-SHA512(secret, body)) on gateway webhooks.
const SignatureHeader = "X-Signature"

type PaymentHandler struct {
	engine  EngineInterface
	webhook PaymentWebhookInterface
	teenSvc TeenServiceInterface
}

func NewPaymentHandler(engine EngineInterface, webhook PaymentWebhookInterface, teenSvc TeenServiceInterface) *PaymentHandler {
	return &PaymentHandler{
		engine:  engine,
		webhook: webhook,
		teenSvc: teenSvc,
	}
}

// @Summary My badges
// @Tags badges
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.BadgeCollectionResponse}
// @Router /api/v1/badges/me [get]
func (h *PaymentHandler) ListMyBadges(c *fiber.Ctx) error {
	badges, err := h.teenSvc.ListBadges(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, badges)
}

// @Summary Buy a badge
// @Description Opens a hosted checkout for the badge and returns where to send the teen
// @Tags badges
// @Produce json
// @Security Bearer
// @Param badgeId path string true "Badge ID"
// @Success 201 {object} shared.Response{data=dto.PurchaseResponse}
// @Failure 409 {object} shared.Response
// @Failure 502 {object} shared.Response
// @Router /api/v1/badges/{badgeId}/purchase [post]
func (h *PaymentHandler) PurchaseBadge(c *fiber.Ctx) error {
	purchase, err := h.engine.InitializePurchase(c.UserContext(), middleware.UserID(c), c.Params("badgeId"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Checkout created", dto.PurchaseResponse{
		Reference:   purchase.Transaction.Reference,
		Token:       purchase.Token,
		RedirectURL: purchase.RedirectURL,
		Amount:      purchase.Transaction.Amount,
		Currency:    purchase.Transaction.Currency,
	})
}

// @Summary Confirm a purchase
// @Description Polls the gateway for the transaction status and applies it
// @Tags badges
// @Produce json
// @Security Bearer
// @Param reference path string true "Transaction reference"
// @Success 200 {object} shared.Response{data=engine.PaymentOutcome}
// @Router /api/v1/payments/{reference}/confirm [post]
func (h *PaymentHandler) ConfirmPurchase(c *fiber.Ctx) error {
	outcome, err := h.engine.ConfirmPurchase(c.UserContext(), c.Params("reference"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, outcome)
}

// @Summary My payments
// @Tags badges
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=[]model.Transaction}
// @Router /api/v1/payments/me [get]
func (h *PaymentHandler) ListMyTransactions(c *fiber.Ctx) error {
	transactions, err := h.teenSvc.ListTransactions(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, transactions)
}

// @Summary Payment gateway webhook
// @Description Signed with X-Signature. Unknown references are acknowledged and ignored.
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Signature header string true "hex HMAC-SHA512 of the raw body"
// @Success 200 {object} shared.Response
// @Failure 401 {object} shared.Response
// @Router /api/v1/payments/webhook [post]
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	outcome, err := h.webhook.HandlePaymentWebhook(c.UserContext(), c.Body(), c.Get(SignatureHeader))
	if shared.IsErrorType(err, shared.ErrTypeNotFound) {
		return shared.ResponseJSON(c, http.StatusOK, "ignored", nil)
	}
	if err != nil {
		return err
	}
	if !outcome.Applied {
		return shared.ResponseJSON(c, http.StatusOK, "duplicate", nil)
	}
	return shared.ResponseJSON(c, http.StatusOK, "processed", nil)
}
