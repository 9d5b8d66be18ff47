package models

import (
	"time"
)

// Wallet holds a member's balance in cents. Balance never goes negative:
// every debit is a conditional UPDATE guarded by balance >= amount, applied
// in the store, never computed in application code.
type Wallet struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MemberID     uint      `gorm:"uniqueIndex;not null" json:"member_id"`
	BalanceCents int64     `gorm:"not null;default:0" json:"balance_cents"`
	Active       bool      `gorm:"not null;default:false;index" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (Wallet) TableName() string { return "wallets" }
