package repositories

import (
	"context"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	BaseRepository
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *TransactionRepository) GetTransactionByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	return first[model.Transaction](ds.conn(ctx), "reference = ?", reference)
}

func (ds *TransactionRepository) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	return ds.conn(ctx).Create(tx).Error
}

func (ds *TransactionRepository) AttachCheckout(ctx context.Context, reference, token, redirectURL string) error {
	res := ds.conn(ctx).Model(&model.Transaction{}).Where("reference = ?", reference).Updates(map[string]interface{}{
		"checkout_token": token,
		"redirect_url":   redirectURL,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (ds *TransactionRepository) UpdateTransactionStatus(ctx context.Context, reference string, u engine.TransactionUpdate, from ...model.TransactionStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":     u.Status,
		"updated_at": u.At,
	}
	if u.Method != "" {
		updates["method"] = u.Method
	}
	if u.GatewayTransactionID != "" {
		updates["gateway_transaction_id"] = u.GatewayTransactionID
	}
	if u.PaidAt != nil {
		updates["paid_at"] = u.PaidAt
	}

	res := ds.conn(ctx).Model(&model.Transaction{}).
		Where("reference = ? AND status IN ?", reference, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (ds *TransactionRepository) ListTeenTransactions(ctx context.Context, teenID string) ([]model.Transaction, error) {
	var txs []model.Transaction
	if err := ds.conn(ctx).Where("teen_id = ?", teenID).Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (ds *TransactionRepository) RecordGatewayEvent(ctx context.Context, event *model.PaymentGatewayEvent) error {
	return ds.conn(ctx).Create(event).Error
}

func (ds *TransactionRepository) SaveGatewayEvent(ctx context.Context, event *model.PaymentGatewayEvent) error {
	return ds.conn(ctx).Save(event).Error
}
