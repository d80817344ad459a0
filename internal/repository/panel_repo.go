package repository

import (
	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// PanelRepository handles panel database operations.
type PanelRepository struct {
	db *gorm.DB
}

func NewPanelRepository(db *gorm.DB) *PanelRepository {
	return &PanelRepository{db: db}
}

// FindByID returns a panel by ID.
func (r *PanelRepository) FindByID(id uint) (*models.Panel, error) {
	var panel models.Panel
	if err := r.db.Where("id = ?", id).First(&panel).Error; err != nil {
		return nil, err
	}
	return &panel, nil
}

// FindActiveByUser returns a user's active panels.
func (r *PanelRepository) FindActiveByUser(userID uint) ([]models.Panel, error) {
	var panels []models.Panel
	err := r.db.Where("user_id = ? AND active = ?", userID, true).Find(&panels).Error
	return panels, err
}

// Create inserts a new panel.
func (r *PanelRepository) Create(panel *models.Panel) error {
	return r.db.Create(panel).Error
}

// Update applies column updates.
func (r *PanelRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Panel{}).Where("id = ?", id).Updates(updates).Error
}

// SavePanelDetection persists the dialect and endpoint overrides learned
// at runtime.
func (r *PanelRepository) SavePanelDetection(panel *models.Panel) error {
	return r.db.Model(&models.Panel{}).Where("id = ?", panel.ID).
		Updates(map[string]interface{}{
			"dialect":            panel.Dialect,
			"detected_endpoints": panel.DetectedEndpoints,
		}).Error
}
