package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatement is one ingested bank statement file. FileHash makes
// ingestion idempotent.
type SettlementStatement struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	FileHash    string    `gorm:"size:64;not null;uniqueIndex" json:"file_hash"`
	RecordCount int       `gorm:"not null" json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SettlementStatement) TableName() string {
	return "settlement_statements"
}

// SettlementRecord is one externally reported settlement.
type SettlementRecord struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	StatementID    string          `gorm:"size:36;not null;index" json:"statement_id"`
	Reference      string          `gorm:"size:100;not null;index" json:"reference"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	SettlementDate time.Time       `gorm:"not null;index" json:"settlement_date"`
	Method         string          `gorm:"size:10;index" json:"method,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SettlementRecord) TableName() string {
	return "settlement_records"
}
