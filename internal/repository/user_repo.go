package repository

import (
	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// UserRepository handles reseller account database operations.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActive returns all active reseller accounts.
func (r *UserRepository) FindActive() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("active = ?", true).Find(&users).Error
	return users, err
}

// Create inserts a new user.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}
