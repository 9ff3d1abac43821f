package repositories

import (
	"context"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

// Overview is the staff dashboard summary for one year.
type Overview struct {
	Year                int   `json:"year"`
	ActiveTeens         int64 `json:"active_teens"`
	PublishedChallenges int64 `json:"published_challenges"`
	PendingReviews      int64 `json:"pending_reviews"`
	BadgesHeld          int64 `json:"badges_held"`
	EligibleTeens       int64 `json:"eligible_teens"`
	Revenue             int64 `json:"revenue"`
}

type AnalyticRepository struct {
	BaseRepository
}

func NewAnalyticRepository(db *gorm.DB) *AnalyticRepository {
	return &AnalyticRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *AnalyticRepository) Overview(ctx context.Context, year int) (*Overview, error) {
	out := &Overview{Year: year}
	db := ds.conn(ctx)

	if err := db.Model(&model.Teen{}).Where("is_active = ?", true).Count(&out.ActiveTeens).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Challenge{}).Where("year = ? AND is_published = ?", year, true).
		Count(&out.PublishedChallenges).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Submission{}).Where("status = ?", model.SubmissionPending).
		Count(&out.PendingReviews).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.TeenBadge{}).
		Joins("JOIN badges ON badges.id = teen_badges.badge_id").
		Joins("JOIN challenges ON challenges.id = badges.challenge_id").
		Where("teen_badges.status IN ? AND challenges.year = ?", heldStatuses, year).
		Count(&out.BadgesHeld).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.RaffleEntry{}).Where("year = ? AND is_eligible = ?", year, true).
		Count(&out.EligibleTeens).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Transaction{}).
		Joins("JOIN badges ON badges.id = transactions.badge_id").
		Joins("JOIN challenges ON challenges.id = badges.challenge_id").
		Where("transactions.status = ? AND challenges.year = ?", model.TransactionSuccess, year).
		Select("COALESCE(SUM(transactions.amount), 0)").
		Scan(&out.Revenue).Error; err != nil {
		return nil, err
	}
	return out, nil
}
