package engine

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		completed, total int64
		want             int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		// Plain rounding gives 100 here; 100 stays reserved for a finished challenge.
		{199, 200, 99},
		{5, 3, 100},
	}
	for _, tt := range tests {
		if got := Percentage(tt.completed, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestRecomputeProgressCountsApprovedSubmissions(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, badge := f.addChallenge(2025, 3, "t1", "t2", "t3")

	f.submitText(t, "teen-1", "t1")
	f.submitText(t, "teen-1", "t2")

	p, err := f.engine.GetProgress(context.Background(), "teen-1", challenge.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if p.Percentage != 67 || p.TasksCompleted != 2 || p.TasksTotal != 3 || p.CompletedAt != nil {
		t.Fatalf("unexpected progress %+v", p)
	}
	if _, ok := f.store.teenBadges[pairKey("teen-1", badge.ID)]; ok {
		t.Fatal("no badge row expected before completion")
	}

	f.submitText(t, "teen-1", "t3")
	p, _ = f.engine.GetProgress(context.Background(), "teen-1", challenge.ID)
	if p.Percentage != 100 || p.CompletedAt == nil || !p.CompletedAt.Equal(f.now) {
		t.Fatalf("expected completion at %v, got %+v", f.now, p)
	}
	if got := f.teenBadge(t, "teen-1", badge.ID).Status; got != model.BadgeAvailable {
		t.Errorf("badge status = %s, want AVAILABLE", got)
	}
	if n := f.events.count(EventChallengeCompleted); n != 1 {
		t.Errorf("completed events = %d, want 1", n)
	}
}

func TestRecomputeProgressIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1", "t2")
	f.submitText(t, "teen-1", "t1")
	f.submitText(t, "teen-1", "t2")

	first, err := f.engine.RecomputeProgress(context.Background(), "teen-1", challenge.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	f.advance(time.Hour)
	second, err := f.engine.RecomputeProgress(context.Background(), "teen-1", challenge.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("recompute changed the row:\n%+v\n%+v", first, second)
	}
	if n := f.events.count(EventChallengeCompleted); n != 1 {
		t.Errorf("completed events = %d, want 1", n)
	}
}

func TestRecomputeProgressEmptyChallenge(t *testing.T) {
	f := newFixture(t)
	challenge, _ := f.addChallenge(2025, 4)

	p, err := f.engine.RecomputeProgress(context.Background(), "teen-1", challenge.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if p.Percentage != 0 || p.TasksTotal != 0 || p.CompletedAt != nil {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestCompletedAtSurvivesRecomputeAndClearsOnRegression(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1", "t2")
	f.submitText(t, "teen-1", "t1")
	sub := f.submitText(t, "teen-1", "t2")
	completedAt := f.now

	f.advance(time.Hour)
	p, _ := f.engine.RecomputeProgress(context.Background(), "teen-1", challenge.ID)
	if p.CompletedAt == nil || !p.CompletedAt.Equal(completedAt) {
		t.Fatalf("completedAt moved: %+v", p)
	}

	f.advance(time.Hour)
	if _, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{Status: model.SubmissionRejected}); err != nil {
		t.Fatalf("review: %v", err)
	}
	p, _ = f.engine.GetProgress(context.Background(), "teen-1", challenge.ID)
	if p.Percentage != 50 || p.CompletedAt != nil {
		t.Fatalf("expected regression to 50%% without completedAt, got %+v", p)
	}

	f.advance(time.Hour)
	if _, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{Status: model.SubmissionApproved}); err != nil {
		t.Fatalf("review: %v", err)
	}
	p, _ = f.engine.GetProgress(context.Background(), "teen-1", challenge.ID)
	if p.CompletedAt == nil || !p.CompletedAt.Equal(f.now) {
		t.Fatalf("expected a fresh completedAt at %v, got %+v", f.now, p)
	}
}

func TestRecomputeProgressConcurrent(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1", "t2")
	f.submitText(t, "teen-1", "t1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.RecomputeProgress(context.Background(), "teen-1", challenge.ID); err != nil {
				t.Errorf("recompute: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(f.store.progress) != 1 {
		t.Fatalf("progress rows = %d, want 1", len(f.store.progress))
	}
	p := f.store.progress[pairKey("teen-1", challenge.ID)]
	if p.Percentage != 50 {
		t.Errorf("percentage = %d, want 50", p.Percentage)
	}
}

func TestGetProgressWithoutRow(t *testing.T) {
	f := newFixture(t)
	challenge, _ := f.addChallenge(2025, 3, "t1")

	p, err := f.engine.GetProgress(context.Background(), "teen-1", challenge.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if p.Percentage != 0 || p.TasksTotal != 1 {
		t.Errorf("unexpected progress %+v", p)
	}
}

func TestRecomputeProgressUnknownChallenge(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")

	_, err := f.engine.RecomputeProgress(context.Background(), "teen-1", "no-such-challenge")
	if !shared.IsErrorType(err, shared.ErrTypeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if len(f.store.progress) != 0 {
		t.Fatalf("progress rows = %d, want 0", len(f.store.progress))
	}
}
