package engine

import (
	"context"
	"math"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	log "github.com/sirupsen/logrus"
)

// Percentage rounds completed/total to a whole percent. A challenge with tasks
// left reports at most 99, and an empty challenge reports 0.
func Percentage(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	if pct == 100 && completed < total {
		return 99
	}
	return pct
}

// RecomputeProgress derives the (teen, challenge) progress row from approved
// submissions and overwrites the stored row. It is idempotent.
func (e *Engine) RecomputeProgress(ctx context.Context, teenID, challengeID string) (*model.Progress, error) {
	if _, err := e.store.GetChallenge(ctx, challengeID); err != nil {
		return nil, lookupError(err, "challenge")
	}
	total, err := e.store.CountTasks(ctx, challengeID)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to count challenge tasks")
	}
	completed, err := e.store.CountApprovedSubmissions(ctx, teenID, challengeID)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to count approved submissions")
	}
	if completed > total {
		completed = total
	}

	previous, err := e.store.GetProgress(ctx, teenID, challengeID)
	if err != nil {
		if !isNotFound(err) {
			return nil, shared.NewInternalError(err, "failed to load progress")
		}
		previous = nil
	}

	now := e.now()
	next := &model.Progress{
		ID:             newID(),
		TeenID:         teenID,
		ChallengeID:    challengeID,
		TasksTotal:     int(total),
		TasksCompleted: int(completed),
		Percentage:     Percentage(completed, total),
		CreatedAt:      now,
	}
	if previous != nil {
		next.ID = previous.ID
		next.CreatedAt = previous.CreatedAt
	}
	if next.Percentage == 100 {
		if previous != nil && previous.Percentage == 100 && previous.CompletedAt != nil {
			next.CompletedAt = previous.CompletedAt
		} else {
			completedAt := now
			next.CompletedAt = &completedAt
		}
	}

	stored, err := e.store.UpsertProgress(ctx, next)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to save progress")
	}

	if stored.Percentage < 100 {
		return stored, nil
	}

	crossed := previous == nil || previous.Percentage < 100
	if crossed {
		log.WithFields(log.Fields{
			"teen_id":      teenID,
			"challenge_id": challengeID,
		}).Info("Challenge completed")
		e.emit(ctx, Event{
			Type:   EventChallengeCompleted,
			TeenID: teenID,
			Data:   map[string]string{"challenge_id": challengeID},
		})
	}

	// Evaluated on every complete recompute, not only on the crossing, so that a
	// missed trigger heals on the next run.
	if err := e.onChallengeComplete(ctx, teenID, challengeID); err != nil {
		return stored, err
	}
	return stored, nil
}

func (e *Engine) onChallengeComplete(ctx context.Context, teenID, challengeID string) error {
	badge, err := e.store.GetBadgeByChallenge(ctx, challengeID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return shared.NewInternalError(err, "failed to load challenge badge")
	}

	if err := e.ensureBadgeRow(ctx, teenID, badge.ID); err != nil {
		return err
	}
	_, err = e.EvaluateEarned(ctx, teenID, badge.ID)
	return err
}

// ensureBadgeRow makes a completed-but-unpaid badge visible as AVAILABLE.
func (e *Engine) ensureBadgeRow(ctx context.Context, teenID, badgeID string) error {
	_, err := e.store.GetTeenBadge(ctx, teenID, badgeID)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return shared.NewInternalError(err, "failed to load teen badge")
	}

	now := e.now()
	err = e.store.CreateTeenBadge(ctx, &model.TeenBadge{
		ID:        newID(),
		TeenID:    teenID,
		BadgeID:   badgeID,
		Status:    model.BadgeAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !isDuplicate(err) {
		return shared.NewInternalError(err, "failed to create teen badge")
	}
	return nil
}
