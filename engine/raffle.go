package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	log "github.com/sirupsen/logrus"
)

// RecomputeEligibility counts the teen's held badges for year and overwrites the
// raffle entry. A teen is eligible with exactly one badge per month.
func (e *Engine) RecomputeEligibility(ctx context.Context, teenID string, year int) (*model.RaffleEntry, error) {
	if _, err := e.store.GetTeen(ctx, teenID); err != nil {
		return nil, lookupError(err, "teen")
	}
	count, err := e.store.CountHeldBadgesForYear(ctx, teenID, year)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to count held badges")
	}

	previous, err := e.store.GetRaffleEntry(ctx, teenID, year)
	if err != nil {
		if !isNotFound(err) {
			return nil, shared.NewInternalError(err, "failed to load raffle entry")
		}
		previous = nil
	}

	entry := &model.RaffleEntry{
		ID:         newID(),
		TeenID:     teenID,
		Year:       year,
		BadgeCount: int(count),
		IsEligible: count == shared.RequiredBadgesPerYear,
		CreatedAt:  e.now(),
	}
	if previous != nil {
		entry.ID = previous.ID
		entry.CreatedAt = previous.CreatedAt
	}

	stored, err := e.store.UpsertRaffleEntry(ctx, entry)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to save raffle entry")
	}

	if stored.IsEligible && (previous == nil || !previous.IsEligible) {
		log.WithFields(log.Fields{"teen_id": teenID, "year": year}).Info("Teen became raffle eligible")
		e.emit(ctx, Event{
			Type:   EventRaffleEligible,
			TeenID: teenID,
			Data:   map[string]string{"year": strconv.Itoa(year)},
		})
	}
	return stored, nil
}

// DrawRaffle picks one winner uniformly among the year's eligible entries. A year
// is drawn at most once.
func (e *Engine) DrawRaffle(ctx context.Context, year int, staffID string) (*model.RaffleDraw, error) {
	if _, err := e.store.GetRaffleDraw(ctx, year); err == nil {
		return nil, shared.NewConflictError(nil, fmt.Sprintf("raffle for %d has already been drawn", year))
	} else if !isNotFound(err) {
		return nil, shared.NewInternalError(err, "failed to load raffle draw")
	}

	entries, err := e.store.ListEligibleEntries(ctx, year)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to list raffle entries")
	}
	if len(entries) == 0 {
		return nil, shared.NewValidationError("year", fmt.Sprintf("no eligible entries for %d", year))
	}

	winner := entries[e.pick(len(entries))]
	draw := &model.RaffleDraw{
		ID:            newID(),
		Year:          year,
		WinnerTeenID:  winner.TeenID,
		EntryID:       winner.ID,
		EligibleCount: len(entries),
		DrawnByID:     staffID,
		DrawnAt:       e.now(),
	}
	if err := e.store.CreateRaffleDraw(ctx, draw); err != nil {
		if isDuplicate(err) {
			return nil, shared.NewConflictError(err, fmt.Sprintf("raffle for %d has already been drawn", year))
		}
		return nil, shared.NewInternalError(err, "failed to save raffle draw")
	}

	log.WithFields(log.Fields{
		"year":     year,
		"winner":   winner.TeenID,
		"eligible": len(entries),
		"drawn_by": staffID,
	}).Info("Raffle drawn")
	e.emit(ctx, Event{
		Type:   EventRaffleWinner,
		TeenID: winner.TeenID,
		Data:   map[string]string{"year": strconv.Itoa(year)},
	})
	return draw, nil
}
