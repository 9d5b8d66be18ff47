package repository

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
)

type ReferralCodeRepository struct {
	db *gorm.DB
}

func NewReferralCodeRepository(db *gorm.DB) *ReferralCodeRepository {
	return &ReferralCodeRepository{db: db}
}

// generateCode returns a code like REF-A3F2C1B0.
func generateCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "REF-" + strings.ToUpper(hex.EncodeToString(b)), nil
}

// GetOrCreateCode returns the member's invite code, creating a unique one
// on first access. Unique-index collisions retry with a fresh code.
func (r *ReferralCodeRepository) GetOrCreateCode(memberID uint) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	if err := r.db.Where("member_id = ?", memberID).First(&rc).Error; err == nil {
		return &rc, nil
	}
	for i := 0; i < 10; i++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		rc = models.ReferralCode{MemberID: memberID, Code: code}
		if err := r.db.Create(&rc).Error; err == nil {
			return &rc, nil
		}
	}
	return nil, fmt.Errorf("failed to generate a unique referral code after retries")
}

func (r *ReferralCodeRepository) GetUnused(code string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	if err := r.db.Where("code = ? AND used = ?", code, false).First(&rc).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

// MarkUsed consumes a one-shot code; the guard keeps a code from validating
// two registrations.
func (r *ReferralCodeRepository) MarkUsed(id uint) (bool, error) {
	res := r.db.Model(&models.ReferralCode{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	return res.RowsAffected > 0, res.Error
}

func (r *ReferralCodeRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.ReferralCode{}).Count(&n).Error
	return n, err
}
