package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

// UserRepository handles teen and staff accounts
type UserRepository struct {
	BaseRepository
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *UserRepository) GetTeen(ctx context.Context, id string) (*model.Teen, error) {
	return first[model.Teen](ds.conn(ctx), "id = ?", id)
}

func (ds *UserRepository) GetTeenByEmail(ctx context.Context, email string) (*model.Teen, error) {
	return first[model.Teen](ds.conn(ctx), "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (ds *UserRepository) CreateTeen(ctx context.Context, teen *model.Teen) error {
	teen.Email = strings.ToLower(strings.TrimSpace(teen.Email))
	return ds.conn(ctx).Create(teen).Error
}

func (ds *UserRepository) UpdateTeenLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	return ds.conn(ctx).Model(&model.Teen{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_login": &now,
		"updated_at": now,
	}).Error
}

// ListActiveTeenIDs returns the ids of every active teen, in insertion order.
func (ds *UserRepository) ListActiveTeenIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := ds.conn(ctx).Model(&model.Teen{}).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (ds *UserRepository) GetStaff(ctx context.Context, id string) (*model.Staff, error) {
	return first[model.Staff](ds.conn(ctx), "id = ?", id)
}

func (ds *UserRepository) GetStaffByEmail(ctx context.Context, email string) (*model.Staff, error) {
	return first[model.Staff](ds.conn(ctx), "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (ds *UserRepository) CreateStaff(ctx context.Context, staff *model.Staff) error {
	staff.Email = strings.ToLower(strings.TrimSpace(staff.Email))
	return ds.conn(ctx).Create(staff).Error
}

func (ds *UserRepository) CountStaffWithRole(ctx context.Context, role model.StaffRole) (int64, error) {
	var n int64
	err := ds.conn(ctx).Model(&model.Staff{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (ds *UserRepository) UpdateStaffLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	return ds.conn(ctx).Model(&model.Staff{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_login": &now,
		"updated_at": now,
	}).Error
}
