package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// MappingRepository handles user-mapping database operations.
type MappingRepository struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// FindByIdentifier resolves the mapping containing the sender identifier,
// or nil when none exists. Identifier sets are stored as JSON arrays, so
// the candidate rows are filtered in Go after a LIKE prefilter.
func (r *MappingRepository) FindByIdentifier(userID uint, identifier string) (*models.UserMapping, error) {
	var rows []models.UserMapping
	err := r.db.Where("user_id = ? AND identifiers LIKE ?", userID, "%"+identifier+"%").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].HasIdentifier(identifier) {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// FindByUsername returns the mapping for a panel username.
func (r *MappingRepository) FindByUsername(userID uint, panelUsername string) (*models.UserMapping, error) {
	var m models.UserMapping
	err := r.db.Where("user_id = ? AND panel_username = ?", userID, panelUsername).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new mapping.
func (r *MappingRepository) Create(m *models.UserMapping) error {
	return r.db.Create(m).Error
}

// Update applies arbitrary column updates.
func (r *MappingRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.UserMapping{}).Where("id = ?", id).Updates(updates).Error
}

// TouchActivity refreshes the last-activity timestamp.
func (r *MappingRepository) TouchActivity(id uint) error {
	return r.db.Model(&models.UserMapping{}).Where("id = ?", id).
		Update("last_activity_at", time.Now()).Error
}

// Suspend marks the mapping auto-suspended with a reason.
func (r *MappingRepository) Suspend(id uint, reason string) error {
	return r.db.Model(&models.UserMapping{}).Where("id = ?", id).Updates(map[string]interface{}{
		"auto_suspended": true,
		"suspend_reason": reason,
	}).Error
}
