package models

import (
	"time"
)

// ReferralCode is a one-shot invite code. It is marked used only after the
// registration it validated has been persisted.
type ReferralCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"not null;index" json:"member_id"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Used      bool      `gorm:"not null;default:false;index" json:"used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (ReferralCode) TableName() string { return "referral_codes" }
