package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is a row-level change record written by the database trigger on
// audited tables. The application only reads it.
type AuditLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Action    string         `gorm:"not null;size:10" json:"action"`
	Table     string         `gorm:"column:table_name;not null;size:100;index:idx_audit_log_table_record,priority:1" json:"table_name"`
	RecordID  string         `gorm:"size:36;index:idx_audit_log_table_record,priority:2" json:"record_id"`
	OldValues datatypes.JSON `json:"old_values,omitempty"`
	NewValues datatypes.JSON `json:"new_values,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_log"
}
