package models

import "time"

// Service holds refill-guarantee metadata matched against an order's
// service name by keyword. An order whose service has no matching row, or
// a row with Guarantee=false, is not refill-eligible.
type Service struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      uint   `gorm:"column:user_id;index" json:"user_id"`
	Keyword     string `gorm:"column:keyword;size:200" json:"keyword"`
	Guarantee   bool   `gorm:"column:guarantee" json:"guarantee"`
	RefillDays  int    `gorm:"column:refill_days" json:"refill_days"`
	DenyMessage string `gorm:"column:deny_message;size:500" json:"deny_message"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}
