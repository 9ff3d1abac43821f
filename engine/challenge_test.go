package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
)

func challengeInput(year, month int) ChallengeInput {
	goLive := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return ChallengeInput{
		Title:       "Kindness month",
		Theme:       "kindness",
		Description: "Do **one** kind thing a day.",
		Year:        year,
		Month:       month,
		GoLiveAt:    goLive,
		ClosingAt:   goLive.AddDate(0, 1, 0),
		CreatedByID: "staff-1",
	}
}

func TestCreateChallengeOnePerMonth(t *testing.T) {
	f := newFixture(t)

	created, err := f.engine.CreateChallenge(context.Background(), challengeInput(2025, 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.IsPublished || !created.IsActive {
		t.Errorf("new challenge should be active and unpublished: %+v", created)
	}

	_, err = f.engine.CreateChallenge(context.Background(), challengeInput(2025, 5))
	appErr := requireType(t, err, shared.ErrTypeConflict)
	if appErr.Message != "a challenge already exists for 2025-05" {
		t.Errorf("message = %q", appErr.Message)
	}

	other, err := f.engine.CreateChallenge(context.Background(), challengeInput(2025, 6))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.engine.UpdateChallenge(context.Background(), other.ID, challengeInput(2025, 5))
	requireType(t, err, shared.ErrTypeConflict)
}

func TestCreateChallengeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ChallengeInput)
		field  string
	}{
		{name: "title", mutate: func(in *ChallengeInput) { in.Title = "  " }, field: "title"},
		{name: "month", mutate: func(in *ChallengeInput) { in.Month = 13 }, field: "month"},
		{name: "year", mutate: func(in *ChallengeInput) { in.Year = 1999 }, field: "year"},
		{name: "window", mutate: func(in *ChallengeInput) { in.ClosingAt = in.GoLiveAt }, field: "closing_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := challengeInput(2025, 5)
			tt.mutate(&in)
			_, err := f.engine.CreateChallenge(context.Background(), in)
			requireValidation(t, err, tt.field)
		})
	}
}

func TestUpdateChallengeKeepsMonth(t *testing.T) {
	f := newFixture(t)
	created, err := f.engine.CreateChallenge(context.Background(), challengeInput(2025, 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := challengeInput(2025, 5)
	in.Title = "Kindness month, revised"
	updated, err := f.engine.UpdateChallenge(context.Background(), created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Kindness month, revised" {
		t.Errorf("title = %q", updated.Title)
	}
}

func TestAddTask(t *testing.T) {
	f := newFixture(t)
	created, _ := f.engine.CreateChallenge(context.Background(), challengeInput(2025, 5))

	task, err := f.engine.AddTask(context.Background(), created.ID, TaskInput{
		Title:    "Quiz",
		Type:     model.TaskTypeQuiz,
		MaxScore: 5,
		Options:  []byte(quizOptions),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.ChallengeID != created.ID || task.MaxScore != 5 {
		t.Errorf("unexpected task %+v", task)
	}

	_, err = f.engine.AddTask(context.Background(), created.ID, TaskInput{Title: "Quiz", Type: model.TaskTypeQuiz})
	requireValidation(t, err, "options")

	_, err = f.engine.AddTask(context.Background(), created.ID, TaskInput{Title: "Essay", Type: model.TaskTypeText, MaxScore: -1})
	requireValidation(t, err, "max_score")

	_, err = f.engine.AddTask(context.Background(), "missing", TaskInput{Title: "Essay", Type: model.TaskTypeText})
	requireType(t, err, shared.ErrTypeNotFound)
}

func TestPublishChallengeNeedsBadge(t *testing.T) {
	f := newFixture(t)
	created, _ := f.engine.CreateChallenge(context.Background(), challengeInput(2025, 5))

	_, err := f.engine.PublishChallenge(context.Background(), created.ID)
	requireType(t, err, shared.ErrTypeConflict)

	if _, err := f.engine.CreateBadge(context.Background(), created.ID, BadgeInput{Name: "Kind heart", Price: 25000}); err != nil {
		t.Fatalf("create badge: %v", err)
	}
	_, err = f.engine.CreateBadge(context.Background(), created.ID, BadgeInput{Name: "Second", Price: 25000})
	requireType(t, err, shared.ErrTypeConflict)

	published, err := f.engine.PublishChallenge(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published.IsPublished {
		t.Fatal("challenge not published")
	}
	if _, err := f.engine.PublishChallenge(context.Background(), created.ID); err != nil {
		t.Fatalf("republish: %v", err)
	}

	if n := f.events.count(EventChallengePublished); n != 1 {
		t.Fatalf("published events = %d, want 1", n)
	}
	if ev := f.events.events[0]; !ev.Broadcast() || ev.Data["challenge_id"] != created.ID {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestCreateBadgeValidation(t *testing.T) {
	f := newFixture(t)
	created, _ := f.engine.CreateChallenge(context.Background(), challengeInput(2025, 5))

	_, err := f.engine.CreateBadge(context.Background(), created.ID, BadgeInput{Name: "Cheap", Price: -1})
	requireValidation(t, err, "price")

	_, err = f.engine.CreateBadge(context.Background(), created.ID, BadgeInput{Price: 100})
	requireValidation(t, err, "name")
}
