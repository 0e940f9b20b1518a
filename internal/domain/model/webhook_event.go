package model

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
)

// WebhookStatus represents the processing status of a webhook
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusCompleted WebhookStatus = "completed"
	WebhookStatusIgnored   WebhookStatus = "ignored"
	WebhookStatusFailed    WebhookStatus = "failed"
)

// Settled reports whether an event needs no further processing.
func (w WebhookStatus) Settled() bool {
	return w == WebhookStatusCompleted || w == WebhookStatusIgnored
}

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// ProviderWebhookEvent is a raw provider status callback. EventID is unique so
// redeliveries are stored once.
type ProviderWebhookEvent struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID          string         `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	PaymentID        *string        `gorm:"size:36;index" json:"payment_id,omitempty"`
	TransactionID    *string        `gorm:"size:100" json:"transaction_id,omitempty"`
	ReportedStatus   string         `gorm:"size:32;not null" json:"reported_status"`
	ProcessingStatus WebhookStatus  `gorm:"size:20;default:'pending';index" json:"processing_status"`
	Payload          datatypes.JSON `json:"payload"`
	LastError        *string        `json:"last_error,omitempty"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ProviderWebhookEvent) TableName() string {
	return "provider_webhook_events"
}
