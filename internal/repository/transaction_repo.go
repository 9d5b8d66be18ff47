package repository

import (
	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) InsertMany(ts []models.Transaction) error {
	if len(ts) == 0 {
		return nil
	}
	return r.db.Create(&ts).Error
}

func (r *TransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatusIf flips the status only while it still equals from; amounts
// and kinds are immutable.
func (r *TransactionRepository) UpdateStatusIf(id uint, from, to string) (bool, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *TransactionRepository) ListByMember(memberID uint, limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("member_id = ?", memberID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *TransactionRepository) ListAll(limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *TransactionRepository) ListByBulk(bulkID uint, kind string, limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("bulk_recharge_id = ? AND kind = ?", bulkID, kind).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *TransactionRepository) CountByBulk(bulkID uint, kind string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Transaction{}).
		Where("bulk_recharge_id = ? AND kind = ?", bulkID, kind).
		Count(&n).Error
	return n, err
}

func (r *TransactionRepository) MemberIDsWithBulkAudit(bulkID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Transaction{}).
		Where("bulk_recharge_id = ? AND kind = ?", bulkID, domain.TxKindRecharge).
		Pluck("member_id", &ids).Error
	return ids, err
}

func (r *TransactionRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Transaction{}).Count(&n).Error
	return n, err
}
