package models

import (
	"time"
)

// Withdrawal is the payout request behind a pending "retiro" transaction.
// Funds are reserved (debited) the moment the withdrawal is created; an
// operator rejection refunds the wallet through a compensating credit.
type Withdrawal struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MemberID      uint      `gorm:"not null;index" json:"member_id"`
	OrderID       string    `gorm:"uniqueIndex;size:64;not null" json:"order_id"`
	AmountCents   int64     `gorm:"not null" json:"amount_cents"`
	Status        string    `gorm:"size:20;not null;default:'pendiente';index" json:"status"`
	TransactionID uint      `gorm:"not null;index" json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (Withdrawal) TableName() string { return "withdrawals" }
