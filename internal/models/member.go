package models

import (
	"time"
)

// Member is a node in the referral pyramid. Level is tree depth (the root
// sits at level 1, level n holds at most 3^(n-1) members); zero means the
// member has not been placed yet. JoinOrder is the monotonic registration
// sequence and is independent of depth.
//
// The three child slots are filled left to right and are never reassigned
// once set; only the placement engine mutates them.
type Member struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string    `gorm:"size:255;not null" json:"email"`
	DNI          string    `gorm:"size:32;not null" json:"dni"`
	PhoneLine    string    `gorm:"size:32" json:"phone_line"`
	WhatsappLine string    `gorm:"size:32" json:"whatsapp_line"`
	Bank         string    `gorm:"size:64" json:"bank"`
	AccountNo    string    `gorm:"size:64" json:"account_no"`
	AccountOwner string    `gorm:"size:255" json:"account_owner"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	ReferralCode string    `gorm:"size:20" json:"referral_code,omitempty"`
	Level        int       `gorm:"not null;default:0;index" json:"level"`
	JoinOrder    uint64    `gorm:"not null;default:0;index" json:"join_order"`
	ParentID     *uint     `gorm:"index" json:"parent_id"`
	Child1ID     *uint     `gorm:"index" json:"child1_id"`
	Child2ID     *uint     `gorm:"index" json:"child2_id"`
	Child3ID     *uint     `gorm:"index" json:"child3_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Parent *Member `gorm:"foreignKey:ParentID" json:"-"`
}

func (Member) TableName() string { return "members" }

// Children returns the filled child IDs in slot order.
func (m *Member) Children() []uint {
	out := make([]uint, 0, 3)
	for _, c := range []*uint{m.Child1ID, m.Child2ID, m.Child3ID} {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// HasOpenSlot reports whether any child slot is still unset.
func (m *Member) HasOpenSlot() bool {
	return m.Child1ID == nil || m.Child2ID == nil || m.Child3ID == nil
}
