package model

import (
	"time"

	"gorm.io/datatypes"
)

// Activity names written to the payment activity log.
const (
	ActivityCreated         = "payment_created"
	ActivityFraudScreened   = "fraud_screened"
	ActivityHeldForReview   = "held_for_review"
	ActivitySubmitted       = "payment_submitted"
	ActivityCompleted       = "payment_completed"
	ActivityFailed          = "payment_failed"
	ActivityReviewApproved  = "review_approved"
	ActivityReviewRejected  = "review_rejected"
	ActivityRecovered       = "pending_recovered"
)

// ActivityLogEntry is an append-only audit record for a payment.
type ActivityLogEntry struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID string            `gorm:"size:36;not null;index:idx_activity_payment_created,priority:1" json:"payment_id"`
	Activity  string            `gorm:"size:64;not null" json:"activity"`
	Details   datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt time.Time         `gorm:"index:idx_activity_payment_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ActivityLogEntry) TableName() string {
	return "payment_activity_log"
}
