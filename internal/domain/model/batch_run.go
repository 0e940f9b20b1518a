package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
)

// BatchRun tracks one bulk submission.
type BatchRun struct {
	ID           string             `gorm:"primaryKey;size:36" json:"id"`
	Requested    int                `gorm:"not null" json:"requested"`
	Processed    int                `gorm:"not null;default:0" json:"processed"`
	SuccessCount int                `gorm:"not null;default:0" json:"success_count"`
	FailureCount int                `gorm:"not null;default:0" json:"failure_count"`
	Status       entity.BatchStatus `gorm:"size:20;not null;index" json:"status"`
	Error        *string            `json:"error,omitempty"`
	Metadata     datatypes.JSONMap  `json:"metadata,omitempty"`
	CreatedBy    string             `gorm:"size:100" json:"created_by,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (BatchRun) TableName() string {
	return "batch_runs"
}
