package models

import "time"

// Checkout stores checkout info reported by PaddleJS from the client side.
// Transient record that acts as a backup in case the corresponding webhook
// is delayed or never arrives.
type Checkout struct {
	ID          string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	Completed   *bool      `gorm:"default:null" json:"completed,omitempty"`
	Passthrough string     `gorm:"type:text" json:"passthrough"`
	Email       string     `gorm:"type:varchar(255)" json:"email"`
	CreatedAt   *time.Time `gorm:"default:null" json:"created_at,omitempty"`
}
