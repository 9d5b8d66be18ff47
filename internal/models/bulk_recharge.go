package models

import (
	"encoding/json"
	"time"
)

// BulkRecharge is the summary record of one mass-recharge run. It is
// created in "procesando" state before the batched credit and finalized to
// "completado" (linking the principal transaction) or "fallido". Reversed
// flips once; the claim on that flag is a conditional update so concurrent
// reversals cannot double-debit.
type BulkRecharge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Reference      string    `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	AmountPerCents int64     `gorm:"not null" json:"amount_per_wallet_cents"`
	WalletCount    int64     `gorm:"not null" json:"wallet_count"`
	TotalCents     int64     `gorm:"not null" json:"total_cents"`
	ExecutorID     uint      `gorm:"not null;index" json:"executor_id"`
	State          string    `gorm:"size:20;not null;default:'procesando';index" json:"state"`
	PrincipalTxID  *uint     `gorm:"index" json:"principal_transaction_id,omitempty"`
	CreditedIDs    string    `gorm:"type:text" json:"-"`
	Reversed       bool      `gorm:"not null;default:false;index" json:"reversed"`
	ExecutedAt     time.Time `gorm:"index" json:"executed_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Executor Member `gorm:"foreignKey:ExecutorID" json:"-"`
}

func (BulkRecharge) TableName() string { return "bulk_recharges" }

// SetCreditedMembers records the exact member set the run credited.
// Reversal and audit backfill read it back instead of reconstructing the
// set from current wallet state.
func (b *BulkRecharge) SetCreditedMembers(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	b.CreditedIDs = string(data)
	return nil
}

// CreditedMembers decodes the credited member set.
func (b *BulkRecharge) CreditedMembers() ([]uint, error) {
	if b.CreditedIDs == "" {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(b.CreditedIDs), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
