package handlers

import (
	"context"
	"net/http"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	notificationSvc NotificationServiceInterface
	feed            FeedSubscriberInterface
}

func NewNotificationHandler(notificationSvc NotificationServiceInterface, feed FeedSubscriberInterface) *NotificationHandler {
	return &NotificationHandler{
		notificationSvc: notificationSvc,
		feed:            feed,
	}
}

// @Summary My notifications
// @Tags notifications
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param unread_only query bool false "Only unread"
// @Success 200 {object} shared.Response{data=dto.NotificationListResponse}
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	var q dto.NotificationQuery
	if err := c.QueryParser(&q); err != nil {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Invalid query", err.Error())
	}
	if err := q.Validate(); err != nil {
		return c.Status(http.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	items, total, err := h.notificationSvc.ListNotifications(c.UserContext(), middleware.UserID(c), q.UnreadOnly, q.Page, q.Limit)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, dto.NotificationListResponse{
		Notifications: items,
		Pagination:    dto.NewPaginationResponse(q.Page, q.Limit, total),
	})
}

// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security Bearer
// @Param id path string true "Notification ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notificationSvc.MarkRead(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Notification marked as read", nil)
}

// UpgradeFeed only lets websocket upgrades through to Feed.
func (h *NotificationHandler) UpgradeFeed(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(feedUserKey, middleware.UserID(c))
	return c.Next()
}

const feedUserKey = "feed_user_id"

// @Summary Live event feed
// @Description Websocket stream of the caller's events and broadcast announcements. Pass the token as ?token= when headers cannot be set.
// @Tags notifications
// @Security Bearer
// @Router /api/v1/ws/feed [get]
func (h *NotificationHandler) Feed() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(feedUserKey).(string)
		logger := log.WithField("user_id", userID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := h.feed.Subscribe(ctx, shared.FeedChannel(userID), shared.FeedBroadcastChannel)
		if err != nil {
			logger.WithError(err).Error("Failed to subscribe to feed")
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed unavailable"))
			return
		}
		defer sub.Close()

		// Reader goroutine notices the client going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					logger.WithError(err).Debug("Feed client disconnected")
					return
				}
			}
		}
	})
}
