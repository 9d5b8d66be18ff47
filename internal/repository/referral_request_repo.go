package repository

import (
	"errors"
	"time"

	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
)

type ReferralRequestRepository struct {
	db *gorm.DB
}

func NewReferralRequestRepository(db *gorm.DB) *ReferralRequestRepository {
	return &ReferralRequestRepository{db: db}
}

func (r *ReferralRequestRepository) Create(req *models.ReferralRequest) error {
	return r.db.Create(req).Error
}

func (r *ReferralRequestRepository) GetByID(id uint) (*models.ReferralRequest, error) {
	var req models.ReferralRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ReferralRequestRepository) HasAccepted(requesterID uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.ReferralRequest{}).
		Where("requester_id = ? AND state = ?", requesterID, domain.RequestAccepted).
		Count(&n).Error
	return n > 0, err
}

func (r *ReferralRequestRepository) HasPending(requesterID uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.ReferralRequest{}).
		Where("requester_id = ? AND state = ?", requesterID, domain.RequestPending).
		Count(&n).Error
	return n > 0, err
}

// AcceptedSponsorOf returns who sponsors the given member, following the
// single accepted request allowed per requester.
func (r *ReferralRequestRepository) AcceptedSponsorOf(requesterID uint) (uint, bool, error) {
	var req models.ReferralRequest
	err := r.db.Where("requester_id = ? AND state = ?", requesterID, domain.RequestAccepted).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return req.SponsorID, true, nil
}

// Resolve flips the state behind a WHERE state = from guard so concurrent
// resolutions cannot both claim the request. A nil respondedAt writes NULL,
// which keeps a request flipped back to pending unmarked.
func (r *ReferralRequestRepository) Resolve(id uint, from, to string, respondedAt *time.Time) (bool, error) {
	res := r.db.Model(&models.ReferralRequest{}).
		Where("id = ? AND state = ?", id, from).
		Updates(map[string]interface{}{"state": to, "responded_at": respondedAt})
	return res.RowsAffected > 0, res.Error
}

func (r *ReferralRequestRepository) ListReceived(sponsorID uint, state string, limit, offset int) ([]models.ReferralRequest, error) {
	q := r.db.Where("sponsor_id = ?", sponsorID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var list []models.ReferralRequest
	err := q.Preload("Requester").
		Order("requested_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *ReferralRequestRepository) ListSent(requesterID uint, state string, limit, offset int) ([]models.ReferralRequest, error) {
	q := r.db.Where("requester_id = ?", requesterID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var list []models.ReferralRequest
	err := q.Preload("Sponsor").
		Order("requested_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *ReferralRequestRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.ReferralRequest{}).Count(&n).Error
	return n, err
}
