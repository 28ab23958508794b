package models

import "time"

const WEBHOOK_PROVIDER_STRIPE = "stripe"

// WebhookEvent stores provider webhook payloads keyed by the provider's event id
// so repeated deliveries collapse into one row.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ExternalEventID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_event_id"`
	Provider        string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	Type            string     `gorm:"type:varchar(100);not null;index" json:"type"`
	Payload         string     `gorm:"type:longtext;not null" json:"payload"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// IsProcessed reports whether dispatch already completed for this event.
func (e *WebhookEvent) IsProcessed() bool {
	return e != nil && e.ProcessedAt != nil
}
