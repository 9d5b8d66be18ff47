package models

import (
	"time"
)

// ReferralRequest is a sponsorship proposal from RequesterID toward
// SponsorID. A member may hold at most one accepted request ever and at
// most one pending request at a time; both are enforced by the workflow
// before insert and by the conditional state flip on resolution.
type ReferralRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RequesterID uint       `gorm:"not null;index" json:"requester_id"`
	SponsorID   uint       `gorm:"not null;index" json:"sponsor_id"`
	State       string     `gorm:"size:20;not null;default:'pendiente';index" json:"state"`
	RequestedAt time.Time  `json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	Requester Member `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Sponsor   Member `gorm:"foreignKey:SponsorID" json:"sponsor,omitempty"`
}

func (ReferralRequest) TableName() string { return "referral_requests" }
