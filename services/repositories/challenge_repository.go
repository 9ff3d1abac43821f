package repositories

import (
	"context"
	"time"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

type ChallengeRepository struct {
	BaseRepository
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *ChallengeRepository) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	return first[model.Challenge](ds.conn(ctx), "id = ?", id)
}

// GetChallengeDetail loads a challenge with its ordered tasks and its badge.
func (ds *ChallengeRepository) GetChallengeDetail(ctx context.Context, id string) (*model.Challenge, error) {
	var challenge model.Challenge
	err := ds.conn(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Preload("Badge").
		Where("id = ?", id).
		First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (ds *ChallengeRepository) FindChallengeByMonth(ctx context.Context, year, month int) (*model.Challenge, error) {
	return first[model.Challenge](ds.conn(ctx), "year = ? AND month = ?", year, month)
}

func (ds *ChallengeRepository) CreateChallenge(ctx context.Context, challenge *model.Challenge) error {
	return ds.conn(ctx).Create(challenge).Error
}

func (ds *ChallengeRepository) SaveChallenge(ctx context.Context, challenge *model.Challenge) error {
	return ds.conn(ctx).Omit("Tasks", "Badge").Save(challenge).Error
}

// ListChallenges returns challenges newest month first. publishedOnly hides drafts;
// year 0 means every year.
func (ds *ChallengeRepository) ListChallenges(ctx context.Context, year int, publishedOnly bool) ([]model.Challenge, error) {
	var challenges []model.Challenge
	query := ds.conn(ctx).Model(&model.Challenge{}).Preload("Badge")
	if year > 0 {
		query = query.Where("year = ?", year)
	}
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Order("year DESC, month DESC").Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

// DeactivateExpired closes every active challenge whose closing time has passed.
func (ds *ChallengeRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := ds.conn(ctx).Model(&model.Challenge{}).
		Where("is_active = ? AND closing_at < ?", true, now).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (ds *ChallengeRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return first[model.Task](ds.conn(ctx), "id = ?", id)
}

func (ds *ChallengeRepository) CreateTask(ctx context.Context, task *model.Task) error {
	return ds.conn(ctx).Create(task).Error
}

func (ds *ChallengeRepository) CountTasks(ctx context.Context, challengeID string) (int64, error) {
	var n int64
	err := ds.conn(ctx).Model(&model.Task{}).Where("challenge_id = ?", challengeID).Count(&n).Error
	return n, err
}

func (ds *ChallengeRepository) GetBadge(ctx context.Context, id string) (*model.Badge, error) {
	var badge model.Badge
	if err := ds.conn(ctx).Preload("Challenge").Where("id = ?", id).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (ds *ChallengeRepository) GetBadgeByChallenge(ctx context.Context, challengeID string) (*model.Badge, error) {
	return first[model.Badge](ds.conn(ctx), "challenge_id = ?", challengeID)
}

func (ds *ChallengeRepository) CreateBadge(ctx context.Context, badge *model.Badge) error {
	return ds.conn(ctx).Omit("Challenge").Create(badge).Error
}
