package models

import "time"

// WebhookEvent is an append-only audit row for a live webhook delivery.
// Rows older than the configured retention window are pruned before each
// write rather than by a background job.
type WebhookEvent struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	Time    time.Time `gorm:"not null;index" json:"time"`
	Payload string    `gorm:"type:longtext;not null" json:"payload"`
}

// ReplayedEvent is the audit/checkpoint row for an event pulled back from
// the Paddle webhook history API. PayloadHash deduplicates re-fetched
// events across replay runs; MAX(time) is the resume checkpoint.
type ReplayedEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Time        time.Time `gorm:"not null;index" json:"time"`
	Payload     string    `gorm:"type:longtext;not null" json:"payload"`
	PayloadHash string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"payload_hash"`
}
