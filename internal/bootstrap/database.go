package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// DefaultUserID is the reseller row seeded on first boot. Single-tenant
// deployments route every transport through it.
const DefaultUserID uint = 1

// MigrateAndSeed ensures required tables exist and inserts baseline rows.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Panel{},
		&models.Order{},
		&models.CommandRecord{},
		&models.UserMapping{},
		&models.SecurityPolicy{},
		&models.Service{},
	}
}

func seedDefaults(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := ensureDefaultUser(tx); err != nil {
			return err
		}
		return ensureDefaultPolicy(tx)
	})
}

func ensureDefaultUser(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	row := models.User{ID: DefaultUserID, Name: "default", Active: true}
	return tx.Create(&row).Error
}

func ensureDefaultPolicy(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.SecurityPolicy{}).Where("user_id = ?", DefaultUserID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.Create(models.DefaultSecurityPolicy(DefaultUserID)).Error
}
