package dto

import "time"

// RateLimitInfo describes the caller's budget for one endpoint type. Remaining is
// -1 when the endpoint is not limited.
type RateLimitInfo struct {
	Allowed      bool       `json:"allowed"`
	Limit        int        `json:"limit"`
	Remaining    int        `json:"remaining"`
	ResetTime    *time.Time `json:"reset_time,omitempty"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}
