package engine

import (
	"context"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
)

// GetProgress returns the stored progress row. A teen who has not submitted yet
// gets an unsaved zero row so that callers always see the task total.
func (e *Engine) GetProgress(ctx context.Context, teenID, challengeID string) (*model.Progress, error) {
	progress, err := e.store.GetProgress(ctx, teenID, challengeID)
	if err == nil {
		return progress, nil
	}
	if !isNotFound(err) {
		return nil, shared.NewInternalError(err, "failed to load progress")
	}

	if _, err := e.store.GetChallenge(ctx, challengeID); err != nil {
		return nil, lookupError(err, "challenge")
	}
	total, err := e.store.CountTasks(ctx, challengeID)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to count challenge tasks")
	}
	return &model.Progress{TeenID: teenID, ChallengeID: challengeID, TasksTotal: int(total)}, nil
}

// GetRaffleEntry returns the teen's entry for year, or an unsaved entry carrying the
// live badge count when eligibility has never been computed.
func (e *Engine) GetRaffleEntry(ctx context.Context, teenID string, year int) (*model.RaffleEntry, error) {
	entry, err := e.store.GetRaffleEntry(ctx, teenID, year)
	if err == nil {
		return entry, nil
	}
	if !isNotFound(err) {
		return nil, shared.NewInternalError(err, "failed to load raffle entry")
	}

	count, err := e.store.CountHeldBadgesForYear(ctx, teenID, year)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to count held badges")
	}
	return &model.RaffleEntry{
		TeenID:     teenID,
		Year:       year,
		BadgeCount: int(count),
		IsEligible: count == shared.RequiredBadgesPerYear,
	}, nil
}
