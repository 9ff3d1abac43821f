package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	"github.com/bytedance/sonic"
)

func (f *fixture) addImageTask(challengeID, taskID string) {
	f.store.tasks[taskID] = model.Task{
		ID:          taskID,
		ChallengeID: challengeID,
		Title:       "Photo",
		Type:        model.TaskTypeImage,
		MaxScore:    10,
	}
}

func TestResubmissionReplacesContentAndResetsReview(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1")

	first := f.submitText(t, "teen-1", "t1")
	if _, err := f.engine.Review(context.Background(), first.ID, "staff-1", ReviewInput{
		Status: model.SubmissionRejected,
		Score:  intPtr(2),
	}); err != nil {
		t.Fatalf("review: %v", err)
	}

	f.advance(time.Minute)
	second, err := f.engine.SubmitTask(context.Background(), SubmitInput{
		TeenID:  "teen-1",
		TaskID:  "t1",
		Payload: "a much better second attempt",
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	if len(f.store.submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(f.store.submissions))
	}
	if second.ID != first.ID {
		t.Errorf("resubmission changed id %s -> %s", first.ID, second.ID)
	}
	stored := f.store.submissions[first.ID]
	if stored.Status != model.SubmissionApproved || stored.Score != nil || stored.ReviewedByID != nil {
		t.Fatalf("review fields not reset: %+v", stored)
	}

	var content TextContent
	if err := sonic.Unmarshal(stored.Content, &content); err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if content.Text != "a much better second attempt" {
		t.Errorf("content = %q", content.Text)
	}
	if p := f.store.progress[pairKey("teen-1", challenge.ID)]; p.Percentage != 100 {
		t.Errorf("percentage = %d, want 100", p.Percentage)
	}
}

func TestSubmitToClosedChallenge(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *model.Challenge, now time.Time)
	}{
		{name: "unpublished", mutate: func(c *model.Challenge, _ time.Time) { c.IsPublished = false }},
		{name: "inactive", mutate: func(c *model.Challenge, _ time.Time) { c.IsActive = false }},
		{name: "closed", mutate: func(c *model.Challenge, now time.Time) { c.ClosingAt = now.Add(-time.Minute) }},
		{name: "not live yet", mutate: func(c *model.Challenge, now time.Time) { c.GoLiveAt = now.Add(time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addTeen("teen-1")
			challenge, _ := f.addChallenge(2025, 3, "t1")
			tt.mutate(&challenge, f.now)
			f.store.challenges[challenge.ID] = challenge

			_, err := f.engine.SubmitTask(context.Background(), SubmitInput{TeenID: "teen-1", TaskID: "t1", Payload: "long enough text"})
			requireType(t, err, shared.ErrTypeConflict)
			if len(f.store.submissions) != 0 {
				t.Errorf("submission stored for closed challenge")
			}
		})
	}
}

func TestSubmitInvalidPayloadStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	f.addChallenge(2025, 3, "t1")

	_, err := f.engine.SubmitTask(context.Background(), SubmitInput{TeenID: "teen-1", TaskID: "t1", Payload: "too short"})
	requireValidation(t, err, "text")
	if len(f.store.submissions) != 0 || len(f.store.progress) != 0 {
		t.Errorf("nothing should be stored")
	}
}

func TestSubmitImageUploadsAndReplacesFiles(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3)
	f.addImageTask(challenge.ID, "photo")

	first, err := f.engine.SubmitTask(context.Background(), SubmitInput{
		TeenID:  "teen-1",
		TaskID:  "photo",
		Payload: "my garden",
		Files:   []FileUpload{{Name: "a.png", Data: pngBytes}, {Name: "b.jpg", Data: jpegBytes}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(first.FileURLs) != 2 || len(f.storage.objects) != 2 {
		t.Fatalf("expected 2 stored files, got %v", first.FileURLs)
	}

	second, err := f.engine.SubmitTask(context.Background(), SubmitInput{
		TeenID: "teen-1",
		TaskID: "photo",
		Files:  []FileUpload{{Name: "c.png", Data: pngBytes}},
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if len(second.FileURLs) != 1 {
		t.Fatalf("file urls = %v", second.FileURLs)
	}
	if len(f.storage.objects) != 1 || len(f.storage.deleted) != 2 {
		t.Errorf("stale files not removed: objects=%d deleted=%v", len(f.storage.objects), f.storage.deleted)
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3)
	f.addImageTask(challenge.ID, "photo")
	f.storage.failing = true

	_, err := f.engine.SubmitTask(context.Background(), SubmitInput{
		TeenID: "teen-1",
		TaskID: "photo",
		Files:  []FileUpload{{Name: "a.png", Data: pngBytes}},
	})
	requireType(t, err, shared.ErrTypeDependency)
	if len(f.store.submissions) != 0 {
		t.Errorf("submission stored despite upload failure")
	}
}

func TestSubmitWithoutStorage(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3)
	f.addImageTask(challenge.ID, "photo")
	f.engine.storage = nil

	_, err := f.engine.SubmitTask(context.Background(), SubmitInput{
		TeenID: "teen-1",
		TaskID: "photo",
		Files:  []FileUpload{{Name: "a.png", Data: pngBytes}},
	})
	requireType(t, err, shared.ErrTypeDependency)
}

func TestDeleteSubmission(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	f.addTeen("teen-2")
	challenge, _ := f.addChallenge(2025, 3, "t1", "t2")
	f.submitText(t, "teen-1", "t1")
	sub := f.submitText(t, "teen-1", "t2")

	err := f.engine.DeleteSubmission(context.Background(), sub.ID, "teen-2")
	requireType(t, err, shared.ErrTypeForbidden)

	if err := f.engine.DeleteSubmission(context.Background(), sub.ID, "teen-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if p := f.store.progress[pairKey("teen-1", challenge.ID)]; p.Percentage != 50 || p.CompletedAt != nil {
		t.Fatalf("unexpected progress %+v", p)
	}

	err = f.engine.DeleteSubmission(context.Background(), sub.ID, "")
	requireType(t, err, shared.ErrTypeNotFound)
}

func TestSubmissionForDeletedTaskIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.addTeen("teen-1")
	challenge, _ := f.addChallenge(2025, 3, "t1", "t2")
	f.submitText(t, "teen-1", "t1")
	delete(f.store.tasks, "t1")

	p, err := f.engine.RecomputeProgress(context.Background(), "teen-1", challenge.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if p.TasksTotal != 1 || p.TasksCompleted != 0 {
		t.Fatalf("unexpected progress %+v", p)
	}
}
