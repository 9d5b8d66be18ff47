package models

import (
	"time"
)

// CommissionLevel is an optional per-level override of the sponsor
// commission. When no row exists for a requester's level the workflow falls
// back to the configured two-tier flat policy.
type CommissionLevel struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	LevelNumber     int       `gorm:"uniqueIndex;not null" json:"level_number"`
	CommissionCents int64     `gorm:"not null" json:"commission_cents"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (CommissionLevel) TableName() string { return "commission_levels" }
