package middleware

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type Limiter interface {
	IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error)
	Message(endpointType string) string
}

// Identify derives the rate limit bucket for a request.
type Identify func(c *fiber.Ctx) string

// RateLimit rejects requests with 429 once identify(c) exhausts the endpoint's budget.
// Limiter failures let the request through.
func RateLimit(limiter Limiter, endpointType string, identify Identify) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := identify(c)

		allowed, info, err := limiter.IsAllowed(c.UserContext(), identifier, endpointType)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"endpoint":   endpointType,
				"identifier": identifier,
			}).Warn("Rate limit check failed")
			return c.Next()
		}

		addRateLimitHeaders(c, info)
		if !allowed {
			return rateLimitExceeded(c, limiter.Message(endpointType), info)
		}
		return c.Next()
	}
}

// ByIP buckets requests per client address.
func ByIP(c *fiber.Ctx) string {
	return ClientIP(c)
}

// ByUser buckets authenticated requests per user and falls back to the client address.
func ByUser(c *fiber.Ctx) string {
	if id := UserID(c); id != "" {
		return id
	}
	return ClientIP(c)
}

// ByEmail buckets credential endpoints per address and submitted email.
func ByEmail(c *fiber.Ctx) string {
	var body struct {
		Email string `json:"email"`
	}
	if len(c.Body()) > 0 && c.BodyParser(&body) == nil && body.Email != "" {
		return fmt.Sprintf("%s:%s", ClientIP(c), strings.ToLower(body.Email))
	}
	return ClientIP(c)
}

func addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	if info.Limit > 0 {
		c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	}
	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}

	if info.BlockedUntil != nil {
		retryAfter := int(time.Until(*info.BlockedUntil).Seconds())
		if retryAfter > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		}
	}
}

func rateLimitExceeded(c *fiber.Ctx, message string, info *dto.RateLimitInfo) error {
	response := map[string]interface{}{
		"error":   "Rate limit exceeded",
		"message": message,
	}

	if info != nil && info.BlockedUntil != nil {
		response["blocked_until"] = info.BlockedUntil.Unix()
		response["retry_after"] = int(time.Until(*info.BlockedUntil).Seconds())
	}

	return shared.ResponseJSON(c, fiber.StatusTooManyRequests, message, response)
}

func ClientIP(c *fiber.Ctx) string {
	// Check for forwarded IP first (for load balancers/proxies)
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return ip
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}
	return ip
}
