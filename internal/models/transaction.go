package models

import (
	"time"
)

// Transaction is an immutable audit row for a wallet movement. Amount is
// always positive; the kind tells the direction. Only Status may change
// after creation (withdrawals move pendiente -> aprobado|rechazado).
type Transaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	MemberID       uint      `gorm:"not null;index" json:"member_id"`
	Kind           string    `gorm:"size:30;not null;index" json:"kind"`
	AmountCents    int64     `gorm:"not null" json:"amount_cents"`
	Status         string    `gorm:"size:20;not null;default:'aprobado';index" json:"status"`
	Description    string    `gorm:"size:255" json:"description"`
	BulkRechargeID *uint     `gorm:"index" json:"bulk_recharge_id,omitempty"`
	ReferralReqID  *uint     `gorm:"index" json:"referral_request_id,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
