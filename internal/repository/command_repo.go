package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// CommandRepository handles command-record database operations.
type CommandRepository struct {
	db *gorm.DB
}

func NewCommandRepository(db *gorm.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

// Begin creates a PROCESSING record for an attempted mutating action.
func (r *CommandRepository) Begin(orderID uint, cmd models.CommandKind, requesterID, platform string) (*models.CommandRecord, error) {
	rec := &models.CommandRecord{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Command:     cmd,
		Status:      models.RecordProcessing,
		RequesterID: requesterID,
		Platform:    platform,
	}
	if err := r.db.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// Finish moves a record to its terminal status. Records already terminal
// are left untouched.
func (r *CommandRepository) Finish(rec *models.CommandRecord, status models.CommandRecordStatus, rawResponse, errorText string) error {
	now := time.Now()
	res := r.db.Model(&models.CommandRecord{}).
		Where("id = ? AND status = ?", rec.ID, models.RecordProcessing).
		Updates(map[string]interface{}{
			"status":       status,
			"raw_response": rawResponse,
			"error_text":   errorText,
			"finished_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	rec.Status = status
	rec.RawResponse = rawResponse
	rec.ErrorText = errorText
	rec.FinishedAt = &now
	return nil
}

// FindByOrderAndCommand returns the most recent record for the pair.
func (r *CommandRepository) FindByOrderAndCommand(orderID uint, cmd models.CommandKind) (*models.CommandRecord, error) {
	var rec models.CommandRecord
	err := r.db.Where("order_id = ? AND command = ?", orderID, cmd).
		Order("created_at DESC").First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
