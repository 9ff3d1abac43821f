package repositories

import (
	"context"
	"time"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

const notificationBatchSize = 500

type NotificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *NotificationRepository) CreateNotifications(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return ds.conn(ctx).CreateInBatches(notifications, notificationBatchSize).Error
}

func (ds *NotificationRepository) ListNotifications(ctx context.Context, teenID string, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var (
		notifications []model.Notification
		total         int64
	)
	filtered := func() *gorm.DB {
		query := ds.conn(ctx).Model(&model.Notification{}).Where("teen_id = ?", teenID)
		if unreadOnly {
			query = query.Where("read_at IS NULL")
		}
		return query
	}
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := Page(page, limit)
	if err := filtered().Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead stamps a teen's notification as read. Already-read notifications keep
// their original time.
func (ds *NotificationRepository) MarkRead(ctx context.Context, id, teenID string, at time.Time) error {
	var n model.Notification
	if err := ds.conn(ctx).Where("id = ? AND teen_id = ?", id, teenID).First(&n).Error; err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	return ds.conn(ctx).Model(&model.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}
