package repositories

import (
	"context"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository stores the derived per-teen state: progress, badges and
// raffle entries.
type ProgressRepository struct {
	BaseRepository
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

var heldStatuses = []model.BadgeStatus{model.BadgePurchased, model.BadgeEarned}

func (ds *ProgressRepository) GetProgress(ctx context.Context, teenID, challengeID string) (*model.Progress, error) {
	return first[model.Progress](ds.conn(ctx), "teen_id = ? AND challenge_id = ?", teenID, challengeID)
}

func (ds *ProgressRepository) UpsertProgress(ctx context.Context, progress *model.Progress) (*model.Progress, error) {
	err := ds.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "teen_id"}, {Name: "challenge_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tasks_total", "tasks_completed", "percentage", "completed_at"}),
	}).Create(progress).Error
	if err != nil {
		return nil, err
	}
	return ds.GetProgress(ctx, progress.TeenID, progress.ChallengeID)
}

func (ds *ProgressRepository) ListTeenProgress(ctx context.Context, teenID string) ([]model.Progress, error) {
	var rows []model.Progress
	if err := ds.conn(ctx).Where("teen_id = ?", teenID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (ds *ProgressRepository) GetTeenBadge(ctx context.Context, teenID, badgeID string) (*model.TeenBadge, error) {
	return first[model.TeenBadge](ds.conn(ctx), "teen_id = ? AND badge_id = ?", teenID, badgeID)
}

func (ds *ProgressRepository) CreateTeenBadge(ctx context.Context, teenBadge *model.TeenBadge) error {
	return ds.conn(ctx).Omit("Badge").Create(teenBadge).Error
}

func (ds *ProgressRepository) TransitionTeenBadge(ctx context.Context, id string, t engine.BadgeTransition, from ...model.BadgeStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":     t.Status,
		"updated_at": t.At,
	}
	if t.PurchasedAt != nil {
		updates["purchased_at"] = t.PurchasedAt
	}
	if t.EarnedAt != nil {
		updates["earned_at"] = t.EarnedAt
	}
	if t.AwardedByID != nil {
		updates["awarded_by_id"] = t.AwardedByID
	}

	res := ds.conn(ctx).Model(&model.TeenBadge{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (ds *ProgressRepository) CountHeldBadgesForYear(ctx context.Context, teenID string, year int) (int64, error) {
	var n int64
	err := ds.conn(ctx).Model(&model.TeenBadge{}).
		Joins("JOIN badges ON badges.id = teen_badges.badge_id").
		Joins("JOIN challenges ON challenges.id = badges.challenge_id").
		Where("teen_badges.teen_id = ? AND teen_badges.status IN ? AND challenges.year = ?", teenID, heldStatuses, year).
		Count(&n).Error
	return n, err
}

// ListTeenBadges returns every badge row of a teen with its badge and challenge.
func (ds *ProgressRepository) ListTeenBadges(ctx context.Context, teenID string) ([]model.TeenBadge, error) {
	var rows []model.TeenBadge
	err := ds.conn(ctx).
		Preload("Badge").
		Preload("Badge.Challenge").
		Where("teen_id = ?", teenID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBadgeHolders returns the teens holding at least one badge from year.
func (ds *ProgressRepository) ListBadgeHolders(ctx context.Context, year int) ([]string, error) {
	var ids []string
	err := ds.conn(ctx).Model(&model.TeenBadge{}).
		Distinct("teen_badges.teen_id").
		Joins("JOIN badges ON badges.id = teen_badges.badge_id").
		Joins("JOIN challenges ON challenges.id = badges.challenge_id").
		Where("teen_badges.status IN ? AND challenges.year = ?", heldStatuses, year).
		Pluck("teen_badges.teen_id", &ids).Error
	return ids, err
}

func (ds *ProgressRepository) GetRaffleEntry(ctx context.Context, teenID string, year int) (*model.RaffleEntry, error) {
	return first[model.RaffleEntry](ds.conn(ctx), "teen_id = ? AND year = ?", teenID, year)
}

func (ds *ProgressRepository) UpsertRaffleEntry(ctx context.Context, entry *model.RaffleEntry) (*model.RaffleEntry, error) {
	err := ds.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "teen_id"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"badge_count", "is_eligible"}),
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}
	return ds.GetRaffleEntry(ctx, entry.TeenID, entry.Year)
}

func (ds *ProgressRepository) ListEligibleEntries(ctx context.Context, year int) ([]model.RaffleEntry, error) {
	var entries []model.RaffleEntry
	err := ds.conn(ctx).
		Where("year = ? AND is_eligible = ?", year, true).
		Order("teen_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (ds *ProgressRepository) GetRaffleDraw(ctx context.Context, year int) (*model.RaffleDraw, error) {
	return first[model.RaffleDraw](ds.conn(ctx), "year = ?", year)
}

func (ds *ProgressRepository) CreateRaffleDraw(ctx context.Context, draw *model.RaffleDraw) error {
	return ds.conn(ctx).Create(draw).Error
}
