package models

import "time"

// OrderStatus is the canonical lifecycle status mirrored from the panel.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderPartial    OrderStatus = "PARTIAL"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

// Terminal reports whether no further panel-driven transition is expected.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// Order maps to the `orders` table. Orders are created lazily the first
// time a sender references them and are never hard-deleted.
type Order struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ExternalID string `gorm:"column:external_id;size:100;index:idx_orders_external,unique" json:"external_id"`
	UserID     uint   `gorm:"column:user_id;index" json:"user_id"`
	PanelID    uint   `gorm:"column:panel_id;index" json:"panel_id"`

	Status     OrderStatus `gorm:"column:status;size:50" json:"status"`
	ServiceName string     `gorm:"column:service_name;size:500" json:"service_name"`
	Quantity   int         `gorm:"column:quantity" json:"quantity"`
	Charge     string      `gorm:"column:charge;size:100" json:"charge"`
	StartCount int         `gorm:"column:start_count" json:"start_count"`
	Remains    int         `gorm:"column:remains" json:"remains"`

	// Provider-layer fields, populated only when the panel Admin API
	// exposes them.
	Provider        string `gorm:"column:provider;size:200" json:"provider"`
	ProviderOrderID string `gorm:"column:provider_order_id;size:100" json:"provider_order_id"`
	ProviderStatus  string `gorm:"column:provider_status;size:100" json:"provider_status"`

	// CustomerUsername is the panel's own record of who placed the order,
	// the ground truth for ownership checks. Empty when the panel did not
	// return it.
	CustomerUsername string `gorm:"column:customer_username;size:200" json:"customer_username"`

	ClaimedBy     string     `gorm:"column:claimed_by;size:200" json:"claimed_by"`
	ClaimedAt     *time.Time `gorm:"column:claimed_at" json:"claimed_at"`
	ClaimVerified bool       `gorm:"column:claim_verified" json:"claim_verified"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
