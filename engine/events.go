package engine

import (
	"context"
	"time"
)

type EventType string

const (
	EventChallengePublished EventType = "CHALLENGE_PUBLISHED"
	EventTaskApproved       EventType = "TASK_APPROVED"
	EventSubmissionRejected EventType = "SUBMISSION_REJECTED"
	EventChallengeCompleted EventType = "CHALLENGE_COMPLETED"
	EventBadgePurchased     EventType = "BADGE_PURCHASED"
	EventBadgeEarned        EventType = "BADGE_EARNED"
	EventRaffleEligible     EventType = "RAFFLE_ELIGIBLE"
	EventRaffleWinner       EventType = "RAFFLE_WINNER"
)

// Event is a domain fact handed to the notification pipeline. An empty TeenID
// addresses every teen.
type Event struct {
	Type       EventType         `json:"type"`
	TeenID     string            `json:"teen_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (ev Event) Broadcast() bool {
	return ev.TeenID == ""
}

// Publisher queues events for asynchronous delivery. Delivery failures never
// reach the caller of an engine operation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
