package models

import "time"

// Subscription status values delivered by Paddle webhooks.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusPaused   = "paused"
	SubscriptionStatusDeleted  = "deleted"
)

// Subscription mirrors a Paddle subscription. Rows are created and updated
// exclusively from webhook/replay payloads; EventTime is monotonic per id —
// an incoming payload with an older or equal event_time never wins.
type Subscription struct {
	ID               string      `gorm:"type:varchar(64);primaryKey" json:"id"`
	SubscriberID     *uint       `gorm:"index;default:null" json:"subscriber_id,omitempty"`
	Subscriber       *Subscriber `json:"subscriber,omitempty"`
	CancelURL        string      `gorm:"type:varchar(2048)" json:"cancel_url"`
	CheckoutID       string      `gorm:"type:varchar(64)" json:"checkout_id"`
	Currency         string      `gorm:"type:varchar(3)" json:"currency"`
	Email            string      `gorm:"type:varchar(255);index" json:"email"`
	EventTime        time.Time   `gorm:"not null;index" json:"event_time"`
	MarketingConsent bool        `gorm:"not null;default:false" json:"marketing_consent"`
	NextBillDate     time.Time   `json:"next_bill_date"`
	Passthrough      string      `gorm:"type:text" json:"passthrough"`
	Quantity         int         `gorm:"not null;default:1" json:"quantity"`
	Source           string      `gorm:"type:varchar(2048)" json:"source"`
	Status           string      `gorm:"type:varchar(16);not null;index" json:"status"`
	PlanID           string      `gorm:"type:varchar(64);not null;index" json:"plan_id"`
	Plan             *Plan       `json:"plan,omitempty"`
	UnitPrice        float64     `json:"unit_price"`
	UpdateURL        string      `gorm:"type:varchar(2048)" json:"update_url"`
	CreatedAt        time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
