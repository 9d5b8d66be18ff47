package repository

import (
	"errors"

	"github.com/wladi27/biblioteca-virtual-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommissionLevelRepository struct {
	db *gorm.DB
}

func NewCommissionLevelRepository(db *gorm.DB) *CommissionLevelRepository {
	return &CommissionLevelRepository{db: db}
}

// GetByLevel returns nil (no error) when a level has no override.
func (r *CommissionLevelRepository) GetByLevel(level int) (*models.CommissionLevel, error) {
	var cl models.CommissionLevel
	err := r.db.Where("level_number = ?", level).First(&cl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cl, nil
}

func (r *CommissionLevelRepository) Set(level int, commissionCents int64) error {
	cl := models.CommissionLevel{LevelNumber: level, CommissionCents: commissionCents}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"commission_cents"}),
	}).Create(&cl).Error
}

func (r *CommissionLevelRepository) List() ([]models.CommissionLevel, error) {
	var list []models.CommissionLevel
	err := r.db.Order("level_number ASC").Find(&list).Error
	return list, err
}
