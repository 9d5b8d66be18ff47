package repository

import (
	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
)

// WalletRepository holds the conditional balance updates every ledger
// guarantee rests on. Balance arithmetic always happens inside the UPDATE
// (gorm.Expr), never in Go code between a read and a write.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(w *models.Wallet) error {
	return r.db.Create(w).Error
}

func (r *WalletRepository) GetByMemberID(memberID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.Where("member_id = ?", memberID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) ActivateExisting(memberID uint) (bool, error) {
	res := r.db.Model(&models.Wallet{}).
		Where("member_id = ? AND active = ?", memberID, false).
		Update("active", true)
	return res.RowsAffected > 0, res.Error
}

func (r *WalletRepository) CreditIfActive(memberID uint, amountCents int64) (bool, error) {
	res := r.db.Model(&models.Wallet{}).
		Where("member_id = ? AND active = ?", memberID, true).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	return res.RowsAffected > 0, res.Error
}

func (r *WalletRepository) Credit(memberID uint, amountCents int64) (bool, error) {
	res := r.db.Model(&models.Wallet{}).
		Where("member_id = ?", memberID).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	return res.RowsAffected > 0, res.Error
}

// DebitIfSufficient is the guard that keeps balances non-negative: the
// decrement applies only when the row still satisfies balance >= amount,
// atomically in the store.
func (r *WalletRepository) DebitIfSufficient(memberID uint, amountCents int64) (bool, error) {
	res := r.db.Model(&models.Wallet{}).
		Where("member_id = ? AND active = ? AND balance_cents >= ?", memberID, true, amountCents).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	return res.RowsAffected > 0, res.Error
}

func (r *WalletRepository) Debit(memberID uint, amountCents int64) (bool, error) {
	res := r.db.Model(&models.Wallet{}).
		Where("member_id = ?", memberID).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	return res.RowsAffected > 0, res.Error
}

func (r *WalletRepository) DeleteIfZero(memberID uint) (bool, error) {
	res := r.db.Where("member_id = ? AND balance_cents = 0", memberID).Delete(&models.Wallet{})
	return res.RowsAffected > 0, res.Error
}

func (r *WalletRepository) CountActive() (int64, error) {
	var n int64
	err := r.db.Model(&models.Wallet{}).Where("active = ?", true).Count(&n).Error
	return n, err
}

func (r *WalletRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Wallet{}).Count(&n).Error
	return n, err
}

// ListActiveMemberIDs returns owners of active wallets; level restricts to
// members at that tree depth, excludeBulkID skips members that already hold
// an audit row for the given bulk run.
func (r *WalletRepository) ListActiveMemberIDs(level int, excludeBulkID uint) ([]uint, error) {
	q := r.db.Model(&models.Wallet{}).Where("wallets.active = ?", true)
	if level > 0 {
		q = q.Joins("JOIN members ON members.id = wallets.member_id").
			Where("members.level = ?", level)
	}
	if excludeBulkID > 0 {
		q = q.Where("wallets.member_id NOT IN (?)",
			r.db.Model(&models.Transaction{}).
				Select("member_id").
				Where("bulk_recharge_id = ? AND kind = ?", excludeBulkID, domain.TxKindRecharge))
	}
	var ids []uint
	err := q.Order("wallets.member_id ASC").Pluck("wallets.member_id", &ids).Error
	return ids, err
}

// CreditMembers applies one batched UPDATE across the given wallets.
func (r *WalletRepository) CreditMembers(memberIDs []uint, amountCents int64) (int64, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}
	res := r.db.Model(&models.Wallet{}).
		Where("member_id IN ? AND active = ?", memberIDs, true).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	return res.RowsAffected, res.Error
}
