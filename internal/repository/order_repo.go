package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"smmbridge/internal/models"
)

// OrderRepository handles order database operations.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByExternalID returns an order by its panel-assigned id, or nil when
// no local record exists yet.
func (r *OrderRepository) FindByExternalID(externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("external_id = ?", externalID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByID returns an order by internal id.
func (r *OrderRepository) FindByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOpenByUser returns the user's orders whose status is not terminal.
func (r *OrderRepository) FindOpenByUser(userID uint, limit int) ([]models.Order, error) {
	var orders []models.Order
	db := r.db.Where("user_id = ? AND status NOT IN ?", userID,
		[]models.OrderStatus{models.OrderCompleted, models.OrderCancelled, models.OrderRefunded})
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&orders).Error
	return orders, err
}

// Create inserts a new order row.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// UpdateStatus applies a refreshed status. Re-applying the same status is a
// no-op other than the timestamp refresh; completed_at is set exactly once,
// on the first transition to COMPLETED.
func (r *OrderRepository) UpdateStatus(order *models.Order, status models.OrderStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == models.OrderCompleted && order.CompletedAt == nil {
		now := time.Now()
		updates["completed_at"] = now
		order.CompletedAt = &now
	}
	if err := r.db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		return err
	}
	order.Status = status
	return nil
}

// Update applies arbitrary column updates.
func (r *OrderRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// Claim binds the order to a sender, first claim wins. Returns false when
// another sender already holds the claim.
func (r *OrderRepository) Claim(order *models.Order, senderID string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND (claimed_by = '' OR claimed_by IS NULL OR claimed_by = ?)", order.ID, senderID).
		Updates(map[string]interface{}{
			"claimed_by":     senderID,
			"claimed_at":     now,
			"claim_verified": true,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	order.ClaimedBy = senderID
	order.ClaimedAt = &now
	order.ClaimVerified = true
	return true, nil
}
