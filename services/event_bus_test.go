package services

import (
	stdctx "context"
	"errors"
	"testing"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/shared"
)

type memoryQueue struct {
	items     [][]byte
	published map[string][][]byte
}

func (q *memoryQueue) Enqueue(_ stdctx.Context, _ string, message []byte) error {
	q.items = append(q.items, message)
	return nil
}

func (q *memoryQueue) Dequeue(_ stdctx.Context, _ string, _ time.Duration) ([]byte, error) {
	if len(q.items) == 0 {
		return nil, nil
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, nil
}

func (q *memoryQueue) Publish(_ stdctx.Context, channel string, message []byte) error {
	if q.published == nil {
		q.published = map[string][][]byte{}
	}
	q.published[channel] = append(q.published[channel], message)
	return nil
}

type recordingDispatcher struct {
	events []engine.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(_ stdctx.Context, ev engine.Event) error {
	d.events = append(d.events, ev)
	return d.err
}

func TestEventBusRoundTrip(t *testing.T) {
	queue := &memoryQueue{}
	dispatcher := &recordingDispatcher{}
	bus := &EventBusService{queue: queue, dispatcher: dispatcher, pollTimeout: time.Millisecond}
	ctx := stdctx.Background()

	events := []engine.Event{
		{Type: engine.EventBadgeEarned, TeenID: "teen-1", Data: map[string]string{"badge_name": "Budget Boss"}, OccurredAt: time.Now()},
		{Type: engine.EventChallengePublished, Data: map[string]string{"title": "Save More"}, OccurredAt: time.Now()},
	}
	for _, ev := range events {
		if err := bus.Publish(ctx, ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for range events {
		found, err := bus.processNext(ctx)
		if err != nil || !found {
			t.Fatalf("processNext: found=%v err=%v", found, err)
		}
	}
	if found, _ := bus.processNext(ctx); found {
		t.Fatal("queue should be drained")
	}

	if len(dispatcher.events) != 2 || dispatcher.events[0].Data["badge_name"] != "Budget Boss" {
		t.Fatalf("dispatched %+v", dispatcher.events)
	}
	if len(queue.published[shared.FeedChannel("teen-1")]) != 1 {
		t.Error("teen event not mirrored to the teen feed")
	}
	if len(queue.published[shared.FeedBroadcastChannel]) != 1 {
		t.Error("broadcast event not mirrored to the broadcast feed")
	}
}

func TestEventBusKeepsFeedWhenDispatchFails(t *testing.T) {
	queue := &memoryQueue{}
	bus := &EventBusService{queue: queue, dispatcher: &recordingDispatcher{err: errors.New("db down")}}
	ctx := stdctx.Background()

	if err := bus.Publish(ctx, engine.Event{Type: engine.EventRaffleWinner, TeenID: "teen-9"}); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.processNext(ctx); err != nil {
		t.Fatalf("dispatch errors must not fail the worker: %v", err)
	}
	if len(queue.published[shared.FeedChannel("teen-9")]) != 1 {
		t.Fatal("live event missing")
	}
}

func TestEventBusDropsMalformedPayload(t *testing.T) {
	queue := &memoryQueue{items: [][]byte{[]byte("{not json")}}
	dispatcher := &recordingDispatcher{}
	bus := &EventBusService{queue: queue, dispatcher: dispatcher}

	found, err := bus.processNext(stdctx.Background())
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if len(dispatcher.events) != 0 {
		t.Fatal("malformed event was dispatched")
	}
}
