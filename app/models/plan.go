package models

import "time"

// Billing interval constants as delivered by the Paddle vendors API.
const (
	BillingTypeDay   = "day"
	BillingTypeMonth = "month"
	BillingTypeYear  = "year"
)

// Plan represents a Paddle subscription plan synced from the vendors API.
// Scalar fields are first-write-wins: repeat syncs never overwrite them.
type Plan struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	BillingType   string    `gorm:"type:varchar(16);not null" json:"billing_type"`
	BillingPeriod int       `gorm:"not null" json:"billing_period"`
	TrialDays     int       `gorm:"not null;default:0" json:"trial_days"`
	Prices        []Price   `gorm:"constraint:OnDelete:CASCADE" json:"prices,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Price is a per-currency price entry owned by a plan. Price lists are
// replaced wholesale on every catalog sync, never patched in place.
type Price struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PlanID    string    `gorm:"type:varchar(64);not null;index:ux_prices_plan_currency_recurring,unique,priority:1" json:"plan_id"`
	Currency  string    `gorm:"type:varchar(3);not null;index:ux_prices_plan_currency_recurring,unique,priority:2" json:"currency"`
	Quantity  float64   `gorm:"not null" json:"quantity"`
	Recurring bool      `gorm:"not null;index:ux_prices_plan_currency_recurring,unique,priority:3" json:"recurring"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
