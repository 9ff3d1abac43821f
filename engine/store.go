package engine

import (
	"context"
	"time"

	"github.com/Calstins/teensha/model"
)

// Store is the persistence contract of the engine. Lookups report a missing row with
// gorm.ErrRecordNotFound and unique-key violations with gorm.ErrDuplicatedKey.
type Store interface {
	TeenStore
	ChallengeStore
	SubmissionStore
	ProgressStore
	BadgeStore
	RaffleStore
	TransactionStore
}

type TeenStore interface {
	GetTeen(ctx context.Context, id string) (*model.Teen, error)
}

type ChallengeStore interface {
	GetChallenge(ctx context.Context, id string) (*model.Challenge, error)
	FindChallengeByMonth(ctx context.Context, year, month int) (*model.Challenge, error)
	CreateChallenge(ctx context.Context, challenge *model.Challenge) error
	SaveChallenge(ctx context.Context, challenge *model.Challenge) error

	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, task *model.Task) error
	CountTasks(ctx context.Context, challengeID string) (int64, error)

	GetBadge(ctx context.Context, id string) (*model.Badge, error)
	GetBadgeByChallenge(ctx context.Context, challengeID string) (*model.Badge, error)
	CreateBadge(ctx context.Context, badge *model.Badge) error
}

type SubmissionStore interface {
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	FindSubmission(ctx context.Context, taskID, teenID string) (*model.Submission, error)
	// UpsertSubmission inserts or overwrites the (task, teen) row and returns the stored row.
	UpsertSubmission(ctx context.Context, submission *model.Submission) (*model.Submission, error)
	SaveReview(ctx context.Context, submission *model.Submission) error
	DeleteSubmission(ctx context.Context, id string) error
	CountApprovedSubmissions(ctx context.Context, teenID, challengeID string) (int64, error)
}

type ProgressStore interface {
	GetProgress(ctx context.Context, teenID, challengeID string) (*model.Progress, error)
	UpsertProgress(ctx context.Context, progress *model.Progress) (*model.Progress, error)
}

// BadgeTransition holds the columns written when a teen badge changes state.
type BadgeTransition struct {
	Status      model.BadgeStatus
	PurchasedAt *time.Time
	EarnedAt    *time.Time
	AwardedByID *string
	At          time.Time
}

type BadgeStore interface {
	GetTeenBadge(ctx context.Context, teenID, badgeID string) (*model.TeenBadge, error)
	CreateTeenBadge(ctx context.Context, teenBadge *model.TeenBadge) error
	// TransitionTeenBadge applies t only while the row is in one of from. It reports
	// whether this call performed the change.
	TransitionTeenBadge(ctx context.Context, id string, t BadgeTransition, from ...model.BadgeStatus) (bool, error)
	CountHeldBadgesForYear(ctx context.Context, teenID string, year int) (int64, error)
}

type RaffleStore interface {
	GetRaffleEntry(ctx context.Context, teenID string, year int) (*model.RaffleEntry, error)
	UpsertRaffleEntry(ctx context.Context, entry *model.RaffleEntry) (*model.RaffleEntry, error)
	ListEligibleEntries(ctx context.Context, year int) ([]model.RaffleEntry, error)
	GetRaffleDraw(ctx context.Context, year int) (*model.RaffleDraw, error)
	CreateRaffleDraw(ctx context.Context, draw *model.RaffleDraw) error
}

// TransactionUpdate holds the columns written when a payment changes state.
type TransactionUpdate struct {
	Status               model.TransactionStatus
	Method               string
	GatewayTransactionID string
	PaidAt               *time.Time
	At                   time.Time
}

type TransactionStore interface {
	GetTransactionByReference(ctx context.Context, reference string) (*model.Transaction, error)
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	AttachCheckout(ctx context.Context, reference, token, redirectURL string) error
	// UpdateTransactionStatus applies u only while the row is in one of from.
	UpdateTransactionStatus(ctx context.Context, reference string, u TransactionUpdate, from ...model.TransactionStatus) (bool, error)
	RecordGatewayEvent(ctx context.Context, event *model.PaymentGatewayEvent) error
	SaveGatewayEvent(ctx context.Context, event *model.PaymentGatewayEvent) error
}
