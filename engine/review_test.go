package engine

import (
	"context"
	"testing"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
)

func intPtr(v int) *int { return &v }

func TestReviewScoreOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	f.addChallenge(2025, 3, "t1")
	sub := f.submitText(t, "teen-1", "t1")

	for _, score := range []int{11, -1} {
		_, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{
			Status: model.SubmissionApproved,
			Score:  intPtr(score),
		})
		requireValidation(t, err, "score")
		if err.(*shared.AppError).Message != "score must be between 0 and 10" {
			t.Errorf("message = %q", err.(*shared.AppError).Message)
		}
	}

	stored := f.store.submissions[sub.ID]
	if stored.Score != nil || stored.ReviewedByID != nil {
		t.Fatalf("rejected review was persisted: %+v", stored)
	}
}

func TestReviewInvalidStatus(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	f.addChallenge(2025, 3, "t1")
	sub := f.submitText(t, "teen-1", "t1")

	_, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{Status: "MAYBE"})
	requireValidation(t, err, "status")
}

func TestReviewNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Review(context.Background(), "missing", "staff-1", ReviewInput{Status: model.SubmissionApproved})
	requireType(t, err, shared.ErrTypeNotFound)
}

func TestReviewRecomputesProgress(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1", "t2")
	sub := f.submitText(t, "teen-1", "t1")

	note := "please add a photo"
	reviewed, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{
		Status: model.SubmissionRejected,
		Score:  intPtr(0),
		Note:   &note,
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.ReviewedByID == nil || *reviewed.ReviewedByID != "staff-1" || reviewed.ReviewedAt == nil {
		t.Fatalf("review fields not set: %+v", reviewed)
	}
	if p := f.store.progress[pairKey("teen-1", challenge.ID)]; p.Percentage != 0 {
		t.Fatalf("percentage = %d, want 0", p.Percentage)
	}

	var rejected *Event
	for i := range f.events.events {
		if f.events.events[i].Type == EventSubmissionRejected {
			rejected = &f.events.events[i]
		}
	}
	if rejected == nil || rejected.TeenID != "teen-1" || rejected.Data["note"] != note {
		t.Fatalf("unexpected rejection event %+v", rejected)
	}

	if _, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{
		Status: model.SubmissionApproved,
		Score:  intPtr(10),
	}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if p := f.store.progress[pairKey("teen-1", challenge.ID)]; p.Percentage != 50 {
		t.Fatalf("percentage = %d, want 50", p.Percentage)
	}
	if n := f.events.count(EventTaskApproved); n != 1 {
		t.Errorf("approved events = %d, want 1", n)
	}
}

func TestPendingReviewDoesNotCount(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1")
	sub := f.submitText(t, "teen-1", "t1")

	if _, err := f.engine.Review(context.Background(), sub.ID, "staff-1", ReviewInput{Status: model.SubmissionPending}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if p := f.store.progress[pairKey("teen-1", challenge.ID)]; p.Percentage != 0 || p.CompletedAt != nil {
		t.Fatalf("unexpected progress %+v", p)
	}
}
