package handlers

import (
	"context"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type AuthServiceInterface interface {
	RegisterTeen(ctx context.Context, req dto.RegisterTeenRequest) (*dto.LoginResponse, error)
	LoginTeen(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	LoginStaff(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	RequiredAuth() fiber.Handler
	RequireRole(roles ...string) fiber.Handler
}

type ChallengeServiceInterface interface {
	CreateChallenge(ctx context.Context, staffID string, req dto.ChallengeRequest) (*model.Challenge, error)
	UpdateChallenge(ctx context.Context, id, staffID string, req dto.ChallengeRequest) (*model.Challenge, error)
	AddTask(ctx context.Context, challengeID string, req dto.TaskRequest) (*model.Task, error)
	CreateBadge(ctx context.Context, challengeID string, req dto.BadgeRequest) (*model.Badge, error)
	PublishChallenge(ctx context.Context, id string) (*model.Challenge, error)
	ListChallenges(ctx context.Context, year int, includeDrafts bool) ([]model.Challenge, error)
	GetChallenge(ctx context.Context, id string, includeDrafts bool) (*dto.ChallengeDetailResponse, error)
}

type TeenServiceInterface interface {
	GetProfile(ctx context.Context, teenID string) (*dto.TeenProfileResponse, error)
	ListProgress(ctx context.Context, teenID string) (*dto.ProgressListResponse, error)
	ListBadges(ctx context.Context, teenID string) (*dto.BadgeCollectionResponse, error)
	RaffleStatus(ctx context.Context, teenID string, year int) (*dto.RaffleStatusResponse, error)
	ListSubmissions(ctx context.Context, teenID, challengeID string) ([]model.Submission, error)
	ListTransactions(ctx context.Context, teenID string) ([]model.Transaction, error)
	ReviewQueue(ctx context.Context, q dto.ReviewQueueQuery) (*dto.SubmissionListResponse, error)
	Overview(ctx context.Context, year int) (*repositories.Overview, error)
}

type NotificationServiceInterface interface {
	ListNotifications(ctx context.Context, teenID string, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, teenID string) error
}

// EngineInterface is the part of *engine.Engine reachable over HTTP.
type EngineInterface interface {
	SubmitTask(ctx context.Context, in engine.SubmitInput) (*model.Submission, error)
	DeleteSubmission(ctx context.Context, submissionID, teenID string) error
	Review(ctx context.Context, submissionID, reviewerID string, in engine.ReviewInput) (*model.Submission, error)
	GetProgress(ctx context.Context, teenID, challengeID string) (*model.Progress, error)
	RecomputeProgress(ctx context.Context, teenID, challengeID string) (*model.Progress, error)
	InitializePurchase(ctx context.Context, teenID, badgeID string) (*engine.Purchase, error)
	ConfirmPurchase(ctx context.Context, reference, teenID string) (*engine.PaymentOutcome, error)
	AwardBadge(ctx context.Context, teenID, badgeID, staffID string) (*model.TeenBadge, error)
	RecomputeEligibility(ctx context.Context, teenID string, year int) (*model.RaffleEntry, error)
	DrawRaffle(ctx context.Context, year int, staffID string) (*model.RaffleDraw, error)
}

type PaymentWebhookInterface interface {
	HandlePaymentWebhook(ctx context.Context, body []byte, signature string) (*engine.PaymentOutcome, error)
}

type FeedSubscriberInterface interface {
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

type RaffleSweeperInterface interface {
	SweepEligibility(ctx context.Context, year int) (int, error)
}
