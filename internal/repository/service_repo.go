package repository

import (
	"strings"

	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// ServiceRepository handles refill-guarantee service metadata.
type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// MatchByServiceName finds the guarantee row whose keyword appears in the
// order's service name. The longest matching keyword wins so that
// "instagram followers hq" beats "instagram".
func (r *ServiceRepository) MatchByServiceName(userID uint, serviceName string) (*models.Service, error) {
	var rows []models.Service
	if err := r.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	name := strings.ToLower(serviceName)
	var best *models.Service
	for i := range rows {
		kw := strings.ToLower(strings.TrimSpace(rows[i].Keyword))
		if kw == "" || !strings.Contains(name, kw) {
			continue
		}
		if best == nil || len(kw) > len(best.Keyword) {
			best = &rows[i]
		}
	}
	return best, nil
}

// Create inserts a service row.
func (r *ServiceRepository) Create(s *models.Service) error {
	return r.db.Create(s).Error
}

// Update applies column updates.
func (r *ServiceRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Service{}).Where("id = ?", id).Updates(updates).Error
}
