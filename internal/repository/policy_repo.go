package repository

import (
	"errors"

	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// PolicyRepository handles security-policy database operations.
type PolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// GetOrCreate returns the user's policy, seeding defaults on first access.
func (r *PolicyRepository) GetOrCreate(userID uint) (*models.SecurityPolicy, error) {
	var policy models.SecurityPolicy
	err := r.db.Where("user_id = ?", userID).First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def := models.DefaultSecurityPolicy(userID)
		if err := r.db.Create(def).Error; err != nil {
			return nil, err
		}
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// Update applies administrator changes.
func (r *PolicyRepository) Update(userID uint, updates map[string]interface{}) error {
	return r.db.Model(&models.SecurityPolicy{}).Where("user_id = ?", userID).Updates(updates).Error
}
