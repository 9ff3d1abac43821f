package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
)

func TestPurchaseThenCompleteEarnsBadge(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1", "t2")

	tb, err := f.engine.PurchaseBadge(context.Background(), "teen-1", badge.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if tb.Status != model.BadgePurchased || tb.PurchasedAt == nil {
		t.Fatalf("unexpected teen badge %+v", tb)
	}

	f.submitText(t, "teen-1", "t1")
	if got := f.teenBadge(t, "teen-1", badge.ID).Status; got != model.BadgePurchased {
		t.Fatalf("badge earned early: %s", got)
	}

	f.advance(time.Minute)
	f.submitText(t, "teen-1", "t2")
	got := f.teenBadge(t, "teen-1", badge.ID)
	if got.Status != model.BadgeEarned || got.EarnedAt == nil || !got.EarnedAt.Equal(f.now) {
		t.Fatalf("expected EARNED at %v, got %+v", f.now, got)
	}
	if n := f.events.count(EventBadgeEarned); n != 1 {
		t.Errorf("earned events = %d, want 1", n)
	}

	entry := f.store.entries[pairKey("teen-1", "2025")]
	if entry.BadgeCount != 1 || entry.IsEligible {
		t.Errorf("unexpected raffle entry %+v", entry)
	}
}

func TestCompleteThenPurchaseEarnsImmediately(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1")

	f.submitText(t, "teen-1", "t1")
	if got := f.teenBadge(t, "teen-1", badge.ID).Status; got != model.BadgeAvailable {
		t.Fatalf("completion without purchase should leave AVAILABLE, got %s", got)
	}

	tb, err := f.engine.PurchaseBadge(context.Background(), "teen-1", badge.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if tb.Status != model.BadgeEarned {
		t.Fatalf("status = %s, want EARNED", tb.Status)
	}
	if f.events.count(EventBadgePurchased) != 1 || f.events.count(EventBadgeEarned) != 1 {
		t.Errorf("unexpected events %+v", f.events.events)
	}
}

func TestPurchaseTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1")

	if _, err := f.engine.PurchaseBadge(context.Background(), "teen-1", badge.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	_, err := f.engine.PurchaseBadge(context.Background(), "teen-1", badge.ID)
	appErr := requireType(t, err, shared.ErrTypeConflict)
	if appErr.Message != "already purchased" {
		t.Errorf("message = %q", appErr.Message)
	}
	if len(f.store.teenBadges) != 1 {
		t.Errorf("teen badge rows = %d, want 1", len(f.store.teenBadges))
	}
}

func TestConcurrentPurchaseHasOneWinner(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1")

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.PurchaseBadge(context.Background(), "teen-1", badge.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case shared.IsErrorType(err, shared.ErrTypeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != callers-1 {
		t.Fatalf("succeeded=%d conflicts=%d", succeeded, conflicts)
	}
	if n := f.events.count(EventBadgePurchased); n != 1 {
		t.Errorf("purchased events = %d, want 1", n)
	}
}

func TestEarnedBadgeIsNeverDemoted(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1", "t2")

	if _, err := f.engine.PurchaseBadge(context.Background(), "teen-1", badge.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	f.submitText(t, "teen-1", "t1")
	sub := f.submitText(t, "teen-1", "t2")

	if _, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{Status: model.SubmissionRejected}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if got := f.teenBadge(t, "teen-1", badge.ID).Status; got != model.BadgeEarned {
		t.Fatalf("status = %s, want EARNED", got)
	}
}

func TestEvaluateEarnedWithoutRow(t *testing.T) {
	f := newFixture(t)
	_, badge := f.addChallenge(2025, 3, "t1")

	tb, err := f.engine.EvaluateEarned(context.Background(), "teen-1", badge.ID)
	if err != nil || tb != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", tb, err)
	}
}

func TestEvaluateEarnedHealsMissedTrigger(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, badge := f.addChallenge(2025, 3, "t1")

	// Progress reached 100 but the badge row was written PURCHASED afterwards
	// without passing through the engine.
	f.store.progress[pairKey("teen-1", challenge.ID)] = model.Progress{
		ID: "p1", TeenID: "teen-1", ChallengeID: challenge.ID,
		TasksTotal: 1, TasksCompleted: 1, Percentage: 100,
	}
	f.store.teenBadges[pairKey("teen-1", badge.ID)] = model.TeenBadge{
		ID: "tb1", TeenID: "teen-1", BadgeID: badge.ID, Status: model.BadgePurchased,
	}

	tb, err := f.engine.EvaluateEarned(context.Background(), "teen-1", badge.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if tb.Status != model.BadgeEarned {
		t.Fatalf("status = %s, want EARNED", tb.Status)
	}
}

func TestAwardBadge(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1")

	f.submitText(t, "teen-1", "t1")
	tb, err := f.engine.AwardBadge(context.Background(), "teen-1", badge.ID, "staff-1")
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if tb.Status != model.BadgeEarned || tb.AwardedByID == nil || *tb.AwardedByID != "staff-1" {
		t.Fatalf("unexpected teen badge %+v", tb)
	}

	_, err = f.engine.AwardBadge(context.Background(), "teen-1", badge.ID, "staff-1")
	requireType(t, err, shared.ErrTypeConflict)

	_, err = f.engine.AwardBadge(context.Background(), "ghost", badge.ID, "staff-1")
	requireType(t, err, shared.ErrTypeNotFound)
}

func TestAwardBadgeWithoutCompletion(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	_, badge := f.addChallenge(2025, 3, "t1")

	tb, err := f.engine.AwardBadge(context.Background(), "teen-1", badge.ID, "staff-1")
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if tb.Status != model.BadgeEarned {
		t.Fatalf("status = %s, want EARNED", tb.Status)
	}
	if entry := f.store.entries[pairKey("teen-1", "2025")]; entry.BadgeCount != 1 {
		t.Errorf("badge count = %d, want 1", entry.BadgeCount)
	}
}
