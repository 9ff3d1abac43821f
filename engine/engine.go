// Package engine computes teen progress, badge states and raffle eligibility from
// submissions and payments. All collaborators are injected; the package holds no
// global clients.
package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/Calstins/teensha/shared"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ObjectStorage stores submission attachments and returns their public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, folder string, data []byte, mimeType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// CheckoutGateway is the hosted payment provider.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	FetchStatus(ctx context.Context, reference string) (*PaymentResult, error)
}

type Engine struct {
	store         Store
	storage       ObjectStorage
	events        Publisher
	checkout      CheckoutGateway
	webhookSecret []byte

	now  func() time.Time
	pick func(n int) int
}

type Option func(*Engine)

func WithObjectStorage(storage ObjectStorage) Option {
	return func(e *Engine) { e.storage = storage }
}

func WithPublisher(publisher Publisher) Option {
	return func(e *Engine) { e.events = publisher }
}

func WithCheckoutGateway(gateway CheckoutGateway) Option {
	return func(e *Engine) { e.checkout = gateway }
}

func WithWebhookSecret(secret string) Option {
	return func(e *Engine) { e.webhookSecret = []byte(secret) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPicker replaces the uniform random index used by raffle draws.
func WithPicker(pick func(n int) int) Option {
	return func(e *Engine) { e.pick = pick }
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		events: NopPublisher{},
		now:    time.Now,
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// lookupError turns a failed lookup into NOT_FOUND or INTERNAL.
func lookupError(err error, what string) error {
	if isNotFound(err) {
		return shared.NewNotFoundError(err, what+" not found")
	}
	return shared.NewInternalError(err, "failed to load "+what)
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now()
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":   ev.Type,
			"teen_id": ev.TeenID,
		}).Warn("Failed to publish domain event")
	}
}
