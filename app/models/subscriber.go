package models

import "time"

// Subscriber is the minimal host-side entity subscriptions link against.
// Host applications that keep their own account table instead point the
// configurable payload lookup at it; this model backs the default
// email-based lookup and the stale-subscription linking path.
type Subscriber struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
