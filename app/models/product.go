package models

import "time"

// Product represents a Paddle product that can be bought with a one-time
// purchase. Created once via get-or-create; repeat syncs are no-ops.
type Product struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:varchar(1024)" json:"description"`
	BasePrice   float64   `gorm:"not null" json:"base_price"`
	SalePrice   *float64  `gorm:"default:null" json:"sale_price,omitempty"`
	Currency    string    `gorm:"type:varchar(3);not null" json:"currency"`
	Icon        string    `gorm:"type:varchar(1024)" json:"icon"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductPurchase records the outcome of a completed one-time purchase
// webhook (fulfillment alert). Created by the purchase reconcile path.
type ProductPurchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   string    `gorm:"type:varchar(64);not null;index" json:"product_id"`
	Product     *Product  `json:"product,omitempty"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	CheckoutID  string    `gorm:"type:varchar(64)" json:"checkout_id"`
	Email       string    `gorm:"type:varchar(255)" json:"email"`
	Passthrough string    `gorm:"type:text" json:"passthrough"`
	EventTime   time.Time `gorm:"index" json:"event_time"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
