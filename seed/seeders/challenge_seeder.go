package seeders

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/bytedance/sonic"
	"gorm.io/gorm"
)

// ChallengeSeeder creates one published challenge per month, each with its badge
// and one task of every type.
type ChallengeSeeder struct {
	engine  *engine.Engine
	adminID string
}

func NewChallengeSeeder(db *gorm.DB, adminID string) *ChallengeSeeder {
	return &ChallengeSeeder{
		engine:  engine.New(repositories.NewStore(db)),
		adminID: adminID,
	}
}

type monthTheme struct {
	title string
	theme string
	badge string
}

var monthThemes = [12]monthTheme{
	{"New Year, New Goals", "Goal setting", "Goal Getter"},
	{"Money Matters", "Budgeting", "Budget Boss"},
	{"Know Yourself", "Self awareness", "Mirror Master"},
	{"Green Habits", "Environment", "Earth Keeper"},
	{"Speak Up", "Communication", "Voice Builder"},
	{"Healthy Body", "Fitness", "Move Maker"},
	{"Digital Citizen", "Online safety", "Cyber Guardian"},
	{"Kindness Counts", "Community", "Kind Heart"},
	{"Study Smart", "Learning skills", "Brain Trainer"},
	{"Mind Matters", "Mental health", "Calm Champion"},
	{"Build Something", "Creativity", "Maker Spark"},
	{"Look Back, Leap Forward", "Reflection", "Year Finisher"},
}

func (s *ChallengeSeeder) SeedYear(year int) error {
	ctx := context.Background()
	created := 0

	for i, m := range monthThemes {
		month := i + 1
		goLive := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

		challenge, err := s.engine.CreateChallenge(ctx, engine.ChallengeInput{
			Title:       m.title,
			Theme:       m.theme,
			Description: fmt.Sprintf("## %s\n\nThis month is about **%s**. Finish every task to earn the *%s* badge.", m.title, m.theme, m.badge),
			Year:        year,
			Month:       month,
			GoLiveAt:    goLive,
			ClosingAt:   goLive.AddDate(0, 1, 0),
			CreatedByID: s.adminID,
		})
		if shared.IsErrorType(err, shared.ErrTypeConflict) {
			log.Printf("Challenge for %04d-%02d already exists, skipping", year, month)
			continue
		}
		if err != nil {
			return err
		}

		if err := s.seedTasks(ctx, challenge.ID); err != nil {
			return fmt.Errorf("tasks for %04d-%02d: %w", year, month, err)
		}
		if _, err := s.engine.CreateBadge(ctx, challenge.ID, engine.BadgeInput{
			Name:        m.badge,
			Description: "Awarded for completing " + m.title,
			Price:       50000,
		}); err != nil {
			return fmt.Errorf("badge for %04d-%02d: %w", year, month, err)
		}
		if _, err := s.engine.PublishChallenge(ctx, challenge.ID); err != nil {
			return err
		}
		created++
	}

	log.Printf("Seeded %d challenges for %d", created, year)
	return nil
}

func (s *ChallengeSeeder) seedTasks(ctx context.Context, challengeID string) error {
	tasks := []struct {
		input   engine.TaskInput
		options engine.TaskOptions
	}{
		{
			input: engine.TaskInput{Title: "Reflect", Description: "Write a few sentences about this month's theme.", TabName: "Write", Type: model.TaskTypeText, IsRequired: true, MaxScore: 10},
		},
		{
			input: engine.TaskInput{Title: "Show us", Description: "Upload a photo of what you did.", TabName: "Create", Type: model.TaskTypeImage, IsRequired: true, MaxScore: 10},
		},
		{
			input: engine.TaskInput{Title: "Tell the story", Description: "Record a short video (optional).", TabName: "Create", Type: model.TaskTypeVideo, MaxScore: 10},
		},
		{
			input: engine.TaskInput{Title: "Quick quiz", TabName: "Learn", Type: model.TaskTypeQuiz, IsRequired: true, MaxScore: 10},
			options: engine.QuizOptions{Questions: []engine.QuizQuestion{
				{ID: "q1", Question: "What is one thing you learned this month?"},
				{ID: "q2", Question: "Which tip was most useful?", Options: []string{"The first", "The second", "The third"}},
			}},
		},
		{
			input: engine.TaskInput{Title: "Check in", TabName: "Learn", Type: model.TaskTypeForm, IsRequired: true, MaxScore: 10},
			options: engine.FormOptions{Fields: []engine.FormField{
				{ID: "hours", Label: "Hours spent", Type: engine.FieldNumber, Required: true},
				{ID: "mentor_email", Label: "Mentor email", Type: engine.FieldEmail},
			}},
		},
		{
			input: engine.TaskInput{Title: "Pick your focus", TabName: "Plan", Type: model.TaskTypePickOne, IsRequired: true, MaxScore: 10},
			options: engine.PickOneOptions{Options: []engine.Choice{
				{ID: "solo", Label: "On my own"},
				{ID: "friends", Label: "With friends"},
				{ID: "family", Label: "With family"},
			}},
		},
		{
			input: engine.TaskInput{Title: "Weekly checklist", TabName: "Plan", Type: model.TaskTypeChecklist, IsRequired: true, MaxScore: 10},
			options: engine.ChecklistOptions{Items: []engine.Choice{
				{ID: "week1", Label: "Week 1"},
				{ID: "week2", Label: "Week 2"},
				{ID: "week3", Label: "Week 3"},
				{ID: "week4", Label: "Week 4"},
			}},
		},
	}

	for i, t := range tasks {
		in := t.input
		in.Position = i + 1
		if t.options != nil {
			raw, err := sonic.Marshal(t.options)
			if err != nil {
				return err
			}
			in.Options = raw
		}
		if _, err := s.engine.AddTask(ctx, challengeID, in); err != nil {
			return err
		}
	}
	return nil
}
