package engine

import (
	"context"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	log "github.com/sirupsen/logrus"
)

const errAlreadyPurchased = "already purchased"

// PurchaseBadge moves a teen's badge to PURCHASED. The (teen, badge) unique key
// decides concurrent attempts: exactly one caller succeeds, the rest get a conflict.
func (e *Engine) PurchaseBadge(ctx context.Context, teenID, badgeID string) (*model.TeenBadge, error) {
	badge, err := e.store.GetBadge(ctx, badgeID)
	if err != nil {
		return nil, lookupError(err, "badge")
	}

	now := e.now()
	teenBadge := &model.TeenBadge{
		ID:          newID(),
		TeenID:      teenID,
		BadgeID:     badgeID,
		Status:      model.BadgePurchased,
		PurchasedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.store.CreateTeenBadge(ctx, teenBadge)
	switch {
	case err == nil:
	case isDuplicate(err):
		existing, err := e.store.GetTeenBadge(ctx, teenID, badgeID)
		if err != nil {
			return nil, lookupError(err, "teen badge")
		}
		if existing.Status.Held() {
			return nil, shared.NewConflictError(nil, errAlreadyPurchased)
		}
		ok, err := e.store.TransitionTeenBadge(ctx, existing.ID, BadgeTransition{
			Status:      model.BadgePurchased,
			PurchasedAt: &now,
			At:          now,
		}, model.BadgeAvailable)
		if err != nil {
			return nil, shared.NewInternalError(err, "failed to purchase badge")
		}
		if !ok {
			return nil, shared.NewConflictError(nil, errAlreadyPurchased)
		}
		existing.Status = model.BadgePurchased
		existing.PurchasedAt = &now
		existing.UpdatedAt = now
		teenBadge = existing
	default:
		return nil, shared.NewInternalError(err, "failed to purchase badge")
	}

	log.WithFields(log.Fields{"teen_id": teenID, "badge_id": badgeID}).Info("Badge purchased")
	e.emit(ctx, Event{
		Type:   EventBadgePurchased,
		TeenID: teenID,
		Data: map[string]string{
			"badge_id":     badge.ID,
			"badge_name":   badge.Name,
			"challenge_id": badge.ChallengeID,
		},
	})

	if err := e.refreshEligibility(ctx, teenID, badge); err != nil {
		return teenBadge, err
	}

	// A teen who finished the challenge before paying is upgraded right away.
	earned, err := e.EvaluateEarned(ctx, teenID, badgeID)
	if err != nil {
		return teenBadge, err
	}
	if earned != nil {
		teenBadge = earned
	}
	return teenBadge, nil
}

// EvaluateEarned upgrades PURCHASED to EARNED once the challenge is complete.
// AVAILABLE is never upgraded and EARNED is never revisited. It returns nil when
// the teen has no row for the badge.
func (e *Engine) EvaluateEarned(ctx context.Context, teenID, badgeID string) (*model.TeenBadge, error) {
	teenBadge, err := e.store.GetTeenBadge(ctx, teenID, badgeID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, shared.NewInternalError(err, "failed to load teen badge")
	}
	if teenBadge.Status != model.BadgePurchased {
		return teenBadge, nil
	}

	badge, err := e.store.GetBadge(ctx, badgeID)
	if err != nil {
		return nil, lookupError(err, "badge")
	}
	progress, err := e.store.GetProgress(ctx, teenID, badge.ChallengeID)
	if err != nil {
		if isNotFound(err) {
			return teenBadge, nil
		}
		return nil, shared.NewInternalError(err, "failed to load progress")
	}
	if progress.Percentage < 100 {
		return teenBadge, nil
	}

	now := e.now()
	ok, err := e.store.TransitionTeenBadge(ctx, teenBadge.ID, BadgeTransition{
		Status:   model.BadgeEarned,
		EarnedAt: &now,
		At:       now,
	}, model.BadgePurchased)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to mark badge earned")
	}
	if !ok {
		// Another recompute got there first.
		current, err := e.store.GetTeenBadge(ctx, teenID, badgeID)
		if err != nil {
			return nil, lookupError(err, "teen badge")
		}
		return current, nil
	}

	teenBadge.Status = model.BadgeEarned
	teenBadge.EarnedAt = &now
	teenBadge.UpdatedAt = now

	log.WithFields(log.Fields{"teen_id": teenID, "badge_id": badgeID}).Info("Badge earned")
	e.emit(ctx, Event{
		Type:   EventBadgeEarned,
		TeenID: teenID,
		Data: map[string]string{
			"badge_id":     badge.ID,
			"badge_name":   badge.Name,
			"challenge_id": badge.ChallengeID,
		},
	})

	if err := e.refreshEligibility(ctx, teenID, badge); err != nil {
		return teenBadge, err
	}
	return teenBadge, nil
}

// AwardBadge is the staff override that grants EARNED without payment or completion.
func (e *Engine) AwardBadge(ctx context.Context, teenID, badgeID, staffID string) (*model.TeenBadge, error) {
	badge, err := e.store.GetBadge(ctx, badgeID)
	if err != nil {
		return nil, lookupError(err, "badge")
	}
	if _, err := e.store.GetTeen(ctx, teenID); err != nil {
		return nil, lookupError(err, "teen")
	}

	now := e.now()
	awardedBy := staffID
	teenBadge := &model.TeenBadge{
		ID:          newID(),
		TeenID:      teenID,
		BadgeID:     badgeID,
		Status:      model.BadgeEarned,
		EarnedAt:    &now,
		AwardedByID: &awardedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.store.CreateTeenBadge(ctx, teenBadge)
	switch {
	case err == nil:
	case isDuplicate(err):
		existing, err := e.store.GetTeenBadge(ctx, teenID, badgeID)
		if err != nil {
			return nil, lookupError(err, "teen badge")
		}
		if existing.Status == model.BadgeEarned {
			return nil, shared.NewConflictError(nil, "badge already earned")
		}
		ok, err := e.store.TransitionTeenBadge(ctx, existing.ID, BadgeTransition{
			Status:      model.BadgeEarned,
			EarnedAt:    &now,
			AwardedByID: &awardedBy,
			At:          now,
		}, model.BadgeAvailable, model.BadgePurchased)
		if err != nil {
			return nil, shared.NewInternalError(err, "failed to award badge")
		}
		if !ok {
			return nil, shared.NewConflictError(nil, "badge already earned")
		}
		existing.Status = model.BadgeEarned
		existing.EarnedAt = &now
		existing.AwardedByID = &awardedBy
		existing.UpdatedAt = now
		teenBadge = existing
	default:
		return nil, shared.NewInternalError(err, "failed to award badge")
	}

	log.WithFields(log.Fields{
		"teen_id":  teenID,
		"badge_id": badgeID,
		"staff_id": staffID,
	}).Info("Badge awarded by staff")
	e.emit(ctx, Event{
		Type:   EventBadgeEarned,
		TeenID: teenID,
		Data: map[string]string{
			"badge_id":     badge.ID,
			"badge_name":   badge.Name,
			"challenge_id": badge.ChallengeID,
			"awarded":      "true",
		},
	})

	if err := e.refreshEligibility(ctx, teenID, badge); err != nil {
		return teenBadge, err
	}
	return teenBadge, nil
}

func (e *Engine) refreshEligibility(ctx context.Context, teenID string, badge *model.Badge) error {
	challenge := badge.Challenge
	if challenge == nil {
		var err error
		challenge, err = e.store.GetChallenge(ctx, badge.ChallengeID)
		if err != nil {
			return lookupError(err, "challenge")
		}
	}
	_, err := e.RecomputeEligibility(ctx, teenID, challenge.Year)
	return err
}
