package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	log "github.com/sirupsen/logrus"
)

type ChallengeInput struct {
	Title       string
	Theme       string
	Description string
	Year        int
	Month       int
	GoLiveAt    time.Time
	ClosingAt   time.Time
	CreatedByID string
}

type TaskInput struct {
	Title       string
	Description string
	TabName     string
	Type        model.TaskType
	IsRequired  bool
	MaxScore    int
	Position    int
	Options     []byte
}

type BadgeInput struct {
	Name        string
	Description string
	ImageURL    string
	Price       int64
}

func validateChallenge(in ChallengeInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return shared.NewValidationError("title", "title is required")
	case in.Month < 1 || in.Month > 12:
		return shared.NewValidationError("month", "month must be between 1 and 12")
	case in.Year < 2000:
		return shared.NewValidationError("year", "year must be 2000 or later")
	case !in.GoLiveAt.IsZero() && !in.ClosingAt.IsZero() && !in.ClosingAt.After(in.GoLiveAt):
		return shared.NewValidationError("closing_at", "closing time must be after go-live time")
	}
	return nil
}

func monthTaken(year, month int) error {
	return shared.NewConflictError(nil, fmt.Sprintf("a challenge already exists for %04d-%02d", year, month))
}

func (e *Engine) CreateChallenge(ctx context.Context, in ChallengeInput) (*model.Challenge, error) {
	if err := validateChallenge(in); err != nil {
		return nil, err
	}
	if _, err := e.store.FindChallengeByMonth(ctx, in.Year, in.Month); err == nil {
		return nil, monthTaken(in.Year, in.Month)
	} else if !isNotFound(err) {
		return nil, shared.NewInternalError(err, "failed to check challenge month")
	}

	now := e.now()
	challenge := &model.Challenge{
		ID:          newID(),
		Title:       strings.TrimSpace(in.Title),
		Theme:       in.Theme,
		Description: in.Description,
		Year:        in.Year,
		Month:       in.Month,
		GoLiveAt:    in.GoLiveAt,
		ClosingAt:   in.ClosingAt,
		IsActive:    true,
		CreatedByID: in.CreatedByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateChallenge(ctx, challenge); err != nil {
		if isDuplicate(err) {
			return nil, monthTaken(in.Year, in.Month)
		}
		return nil, shared.NewInternalError(err, "failed to create challenge")
	}
	return challenge, nil
}

func (e *Engine) UpdateChallenge(ctx context.Context, id string, in ChallengeInput) (*model.Challenge, error) {
	if err := validateChallenge(in); err != nil {
		return nil, err
	}
	challenge, err := e.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, lookupError(err, "challenge")
	}

	if challenge.Year != in.Year || challenge.Month != in.Month {
		if other, err := e.store.FindChallengeByMonth(ctx, in.Year, in.Month); err == nil && other.ID != id {
			return nil, monthTaken(in.Year, in.Month)
		} else if err != nil && !isNotFound(err) {
			return nil, shared.NewInternalError(err, "failed to check challenge month")
		}
	}

	challenge.Title = strings.TrimSpace(in.Title)
	challenge.Theme = in.Theme
	challenge.Description = in.Description
	challenge.Year = in.Year
	challenge.Month = in.Month
	challenge.GoLiveAt = in.GoLiveAt
	challenge.ClosingAt = in.ClosingAt
	challenge.UpdatedAt = e.now()

	if err := e.store.SaveChallenge(ctx, challenge); err != nil {
		if isDuplicate(err) {
			return nil, monthTaken(in.Year, in.Month)
		}
		return nil, shared.NewInternalError(err, "failed to update challenge")
	}
	return challenge, nil
}

func (e *Engine) AddTask(ctx context.Context, challengeID string, in TaskInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, shared.NewValidationError("title", "title is required")
	}
	if in.MaxScore < 0 {
		return nil, shared.NewValidationError("max_score", "max score cannot be negative")
	}
	if _, err := ValidateTaskOptions(in.Type, in.Options); err != nil {
		return nil, err
	}
	if _, err := e.store.GetChallenge(ctx, challengeID); err != nil {
		return nil, lookupError(err, "challenge")
	}

	now := e.now()
	task := &model.Task{
		ID:          newID(),
		ChallengeID: challengeID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		TabName:     in.TabName,
		Type:        in.Type,
		IsRequired:  in.IsRequired,
		MaxScore:    in.MaxScore,
		Position:    in.Position,
		Options:     in.Options,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateTask(ctx, task); err != nil {
		return nil, shared.NewInternalError(err, "failed to create task")
	}
	return task, nil
}

func (e *Engine) CreateBadge(ctx context.Context, challengeID string, in BadgeInput) (*model.Badge, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, shared.NewValidationError("name", "name is required")
	}
	if in.Price < 0 {
		return nil, shared.NewValidationError("price", "price cannot be negative")
	}
	if _, err := e.store.GetChallenge(ctx, challengeID); err != nil {
		return nil, lookupError(err, "challenge")
	}
	if _, err := e.store.GetBadgeByChallenge(ctx, challengeID); err == nil {
		return nil, shared.NewConflictError(nil, "challenge already has a badge")
	} else if !isNotFound(err) {
		return nil, shared.NewInternalError(err, "failed to load challenge badge")
	}

	now := e.now()
	badge := &model.Badge{
		ID:          newID(),
		ChallengeID: challengeID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateBadge(ctx, badge); err != nil {
		if isDuplicate(err) {
			return nil, shared.NewConflictError(err, "challenge already has a badge")
		}
		return nil, shared.NewInternalError(err, "failed to create badge")
	}
	return badge, nil
}

// PublishChallenge opens a challenge to teens. A challenge cannot go out without its badge.
func (e *Engine) PublishChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	challenge, err := e.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, lookupError(err, "challenge")
	}
	if _, err := e.store.GetBadgeByChallenge(ctx, id); err != nil {
		if isNotFound(err) {
			return nil, shared.NewConflictError(nil, "cannot publish a challenge without a badge")
		}
		return nil, shared.NewInternalError(err, "failed to load challenge badge")
	}
	if challenge.IsPublished {
		return challenge, nil
	}

	challenge.IsPublished = true
	challenge.UpdatedAt = e.now()
	if err := e.store.SaveChallenge(ctx, challenge); err != nil {
		return nil, shared.NewInternalError(err, "failed to publish challenge")
	}

	log.WithFields(log.Fields{"challenge_id": id, "year": challenge.Year, "month": challenge.Month}).Info("Challenge published")
	e.emit(ctx, Event{
		Type: EventChallengePublished,
		Data: map[string]string{
			"challenge_id": challenge.ID,
			"title":        challenge.Title,
			"year":         strconv.Itoa(challenge.Year),
			"month":        strconv.Itoa(challenge.Month),
		},
	})
	return challenge, nil
}
