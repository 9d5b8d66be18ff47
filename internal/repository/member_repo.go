package repository

import (
	"errors"
	"fmt"

	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(m *models.Member) error {
	return r.db.Create(m).Error
}

func (r *MemberRepository) GetByID(id uint) (*models.Member, error) {
	var m models.Member
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) GetByUsername(username string) (*models.Member, error) {
	var m models.Member
	if err := r.db.Where("username = ?", username).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindOpenParents returns placed members with an unset child slot, oldest
// first, so the tree fills in creation order.
func (r *MemberRepository) FindOpenParents(limit int) ([]models.Member, error) {
	var list []models.Member
	err := r.db.
		Where("level > 0 AND (child1_id IS NULL OR child2_id IS NULL OR child3_id IS NULL)").
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ClaimChildSlot fills one child slot with a conditional update: the slot
// must still be NULL and the previous slot already set, which preserves the
// left-to-right fill order under concurrent placements. RowsAffected tells
// the caller whether the claim won.
func (r *MemberRepository) ClaimChildSlot(parentID uint, slot int, childID uint) (bool, error) {
	var res *gorm.DB
	switch slot {
	case 1:
		res = r.db.Model(&models.Member{}).
			Where("id = ? AND child1_id IS NULL", parentID).
			Update("child1_id", childID)
	case 2:
		res = r.db.Model(&models.Member{}).
			Where("id = ? AND child2_id IS NULL AND child1_id IS NOT NULL", parentID).
			Update("child2_id", childID)
	case 3:
		res = r.db.Model(&models.Member{}).
			Where("id = ? AND child3_id IS NULL AND child2_id IS NOT NULL", parentID).
			Update("child3_id", childID)
	default:
		return false, fmt.Errorf("invalid child slot %d", slot)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *MemberRepository) AssignPlacement(memberID uint, parentID *uint, level int) error {
	return r.db.Model(&models.Member{}).
		Where("id = ?", memberID).
		Updates(map[string]interface{}{"parent_id": parentID, "level": level}).Error
}

// ClaimRoot promotes the member to the level-1 root behind a guard that no
// placed member exists, in one UPDATE, so two concurrent first placements
// cannot both become the root. The derived table works around MySQL's
// restriction on subquerying the table being updated.
func (r *MemberRepository) ClaimRoot(memberID uint) (bool, error) {
	res := r.db.Exec(
		"UPDATE members SET parent_id = NULL, level = 1 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM (SELECT id FROM members WHERE level > 0) AS placed)",
		memberID,
	)
	return res.RowsAffected > 0, res.Error
}

// ParentHolding finds the member already referencing childID in a child
// slot, if any.
func (r *MemberRepository) ParentHolding(childID uint) (*models.Member, error) {
	var m models.Member
	err := r.db.Where("child1_id = ? OR child2_id = ? OR child3_id = ?", childID, childID, childID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) CountByLevel() (map[int]int64, error) {
	type row struct {
		Level int
		N     int64
	}
	var rows []row
	err := r.db.Model(&models.Member{}).
		Select("level, COUNT(*) AS n").
		Where("level > 0").
		Group("level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, rw := range rows {
		out[rw.Level] = rw.N
	}
	return out, nil
}

func (r *MemberRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Member{}).Count(&n).Error
	return n, err
}

// NextJoinOrder allocates the next registration sequence number.
func (r *MemberRepository) NextJoinOrder() (uint64, error) {
	var last uint64
	err := r.db.Model(&models.Member{}).
		Select("COALESCE(MAX(join_order), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}
