package services

import (
	stdctx "context"
	"os"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// EngineService owns the progress engine and binds it to the database, storage,
// payment gateway and event bus.
type EngineService struct {
	context.DefaultService

	db            Database
	engine        *engine.Engine
	monitoring    *MonitoringService
	webhookSecret string
}

const ENGINE_SVC = "engine_svc"

func (svc EngineService) Id() string {
	return ENGINE_SVC
}

func (svc *EngineService) Configure(ctx *context.Context) error {
	svc.webhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if svc.webhookSecret == "" {
		svc.webhookSecret = os.Getenv("MIDTRANS_SERVER_KEY")
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *EngineService) Start() error {
	db, err := resolveDatabase(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	if err != nil {
		return err
	}
	svc.db = db
	svc.monitoring, _ = svc.Service(MONITORING_SVC).(*MonitoringService)

	opts := []engine.Option{engine.WithWebhookSecret(svc.webhookSecret)}
	if media, ok := svc.Service(MEDIA_SVC).(*MediaService); ok {
		opts = append(opts, engine.WithObjectStorage(media))
	}
	if bus, ok := svc.Service(EVENT_BUS_SVC).(*EventBusService); ok {
		opts = append(opts, engine.WithPublisher(bus))
	}
	if gateway, ok := svc.Service(MIDTRANS_SVC).(*MidtransService); ok {
		opts = append(opts, engine.WithCheckoutGateway(gateway))
	}
	if svc.webhookSecret == "" {
		log.Warn("PAYMENT_WEBHOOK_SECRET not set, payment webhooks will be rejected")
	}

	svc.engine = engine.New(repositories.NewStore(db.Db()), opts...)
	return nil
}

func (svc *EngineService) Engine() *engine.Engine {
	return svc.engine
}

// HandlePaymentWebhook verifies and applies a gateway notification and records the
// outcome for monitoring.
func (svc *EngineService) HandlePaymentWebhook(ctx stdctx.Context, body []byte, signature string) (*engine.PaymentOutcome, error) {
	outcome, err := svc.engine.HandlePaymentWebhook(ctx, body, signature)
	switch {
	case shared.IsErrorType(err, shared.ErrTypeNotFound):
		svc.monitoring.RecordWebhook("ignored")
	case shared.IsErrorType(err, shared.ErrTypeUnauthorized):
		svc.monitoring.RecordWebhook("rejected")
	case err != nil:
		svc.monitoring.RecordWebhook("error")
	case outcome != nil && outcome.Applied:
		svc.monitoring.RecordWebhook("applied")
	default:
		svc.monitoring.RecordWebhook("duplicate")
	}
	return outcome, err
}
