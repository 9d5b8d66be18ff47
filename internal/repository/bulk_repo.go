package repository

import (
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
)

type BulkRechargeRepository struct {
	db *gorm.DB
}

func NewBulkRechargeRepository(db *gorm.DB) *BulkRechargeRepository {
	return &BulkRechargeRepository{db: db}
}

func (r *BulkRechargeRepository) Create(b *models.BulkRecharge) error {
	return r.db.Create(b).Error
}

func (r *BulkRechargeRepository) GetByID(id uint) (*models.BulkRecharge, error) {
	var b models.BulkRecharge
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BulkRechargeRepository) Finalize(id uint, state string, principalTxID *uint, walletCount, totalCents int64) error {
	patch := map[string]interface{}{"state": state}
	if principalTxID != nil {
		patch["principal_tx_id"] = *principalTxID
	}
	if walletCount > 0 {
		patch["wallet_count"] = walletCount
		patch["total_cents"] = totalCents
	}
	return r.db.Model(&models.BulkRecharge{}).Where("id = ?", id).Updates(patch).Error
}

// MarkReversed is the check-and-set guarding double reversal.
func (r *BulkRechargeRepository) MarkReversed(id uint) (bool, error) {
	res := r.db.Model(&models.BulkRecharge{}).
		Where("id = ? AND reversed = ?", id, false).
		Update("reversed", true)
	return res.RowsAffected > 0, res.Error
}

func (r *BulkRechargeRepository) List(reversed *bool, limit, offset int) ([]models.BulkRecharge, error) {
	q := r.db.Model(&models.BulkRecharge{})
	if reversed != nil {
		q = q.Where("reversed = ?", *reversed)
	}
	var list []models.BulkRecharge
	err := q.Order("executed_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *BulkRechargeRepository) ListByState(state string, limit int) ([]models.BulkRecharge, error) {
	var list []models.BulkRecharge
	err := r.db.Where("state = ?", state).
		Order("executed_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
