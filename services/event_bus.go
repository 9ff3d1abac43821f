package services

import (
	stdctx "context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

type eventQueue interface {
	Enqueue(ctx stdctx.Context, queue string, message []byte) error
	Dequeue(ctx stdctx.Context, queue string, timeout time.Duration) ([]byte, error)
	Publish(ctx stdctx.Context, channel string, message []byte) error
}

type eventDispatcher interface {
	Dispatch(ctx stdctx.Context, ev engine.Event) error
}

// EventBusService queues engine events in Redis and drains them with a small worker
// pool. Each event is persisted as notifications and mirrored to the live feed.
type EventBusService struct {
	context.DefaultService

	queue      eventQueue
	dispatcher eventDispatcher
	monitoring *MonitoringService

	workers     int
	pollTimeout time.Duration

	cancel stdctx.CancelFunc
	wg     sync.WaitGroup
}

const EVENT_BUS_SVC = "event_bus_svc"

var _ engine.Publisher = (*EventBusService)(nil)

func (svc EventBusService) Id() string {
	return EVENT_BUS_SVC
}

func (svc *EventBusService) Configure(ctx *context.Context) error {
	svc.workers = 2
	if v, err := strconv.Atoi(os.Getenv("EVENT_WORKERS")); err == nil && v > 0 {
		svc.workers = v
	}
	svc.pollTimeout = 5 * time.Second
	return svc.DefaultService.Configure(ctx)
}

func (svc *EventBusService) Start() error {
	svc.queue = svc.Service(REDIS_SVC).(*RedisService)
	svc.dispatcher = svc.Service(NOTIFICATION_SVC).(*NotificationService)
	svc.monitoring, _ = svc.Service(MONITORING_SVC).(*MonitoringService)

	ctx, cancel := stdctx.WithCancel(stdctx.Background())
	svc.cancel = cancel
	for i := 0; i < svc.workers; i++ {
		svc.wg.Add(1)
		go func(worker int) {
			defer svc.wg.Done()
			svc.run(ctx, worker)
		}(i)
	}
	log.WithField("workers", svc.workers).Info("Event bus started")
	return nil
}

func (svc *EventBusService) Shutdown() {
	if svc.cancel != nil {
		svc.cancel()
	}
	svc.wg.Wait()
}

func (svc *EventBusService) Publish(ctx stdctx.Context, ev engine.Event) error {
	payload, err := shared.JSONMarshal(ev)
	if err != nil {
		return err
	}
	svc.monitoring.RecordEvent(string(ev.Type))
	return svc.queue.Enqueue(ctx, shared.EventQueueKey, payload)
}

func (svc *EventBusService) run(ctx stdctx.Context, worker int) {
	for ctx.Err() == nil {
		if _, err := svc.processNext(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).WithField("worker", worker).Warn("Event worker failed")
			// Back off so a lost Redis connection does not spin.
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// processNext handles at most one queued event. It reports whether one was found.
func (svc *EventBusService) processNext(ctx stdctx.Context) (bool, error) {
	payload, err := svc.queue.Dequeue(ctx, shared.EventQueueKey, svc.pollTimeout)
	if err != nil || payload == nil {
		return false, err
	}

	var ev engine.Event
	if err := shared.JSONUnmarshal(payload, &ev); err != nil {
		log.WithError(err).WithField("payload", string(payload)).Error("Dropping malformed event")
		return true, nil
	}

	if err := svc.dispatcher.Dispatch(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{"event": ev.Type, "teen_id": ev.TeenID}).Error("Failed to dispatch event")
	}

	channel := shared.FeedBroadcastChannel
	if !ev.Broadcast() {
		channel = shared.FeedChannel(ev.TeenID)
	}
	if err := svc.queue.Publish(ctx, channel, payload); err != nil {
		log.WithError(err).WithField("channel", channel).Warn("Failed to publish live event")
	}
	return true, nil
}
