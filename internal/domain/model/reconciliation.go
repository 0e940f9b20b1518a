package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
)

// ReconciliationReport is the immutable result of reconciling one day and
// scope.
type ReconciliationReport struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	ReportDate      time.Time `gorm:"not null;index" json:"report_date"`
	Scope           string    `gorm:"size:10;not null" json:"scope"`
	TotalPayments   int       `gorm:"not null" json:"total_payments"`
	MatchedCount    int       `gorm:"not null" json:"matched_count"`
	UnmatchedCount  int       `gorm:"not null" json:"unmatched_count"`
	SettlementCount int       `gorm:"not null" json:"settlement_count"`
	CreatedAt       time.Time `json:"created_at"`

	Discrepancies []ReconciliationDiscrepancy `gorm:"foreignKey:ReportID" json:"discrepancies"`
}

// TableName specifies the table name for GORM
func (ReconciliationReport) TableName() string {
	return "reconciliation_reports"
}

// ReconciliationDiscrepancy is one finding in a report. Position keeps the
// order in which findings were produced.
type ReconciliationDiscrepancy struct {
	ID        int64                  `gorm:"primaryKey;autoIncrement" json:"-"`
	ReportID  string                 `gorm:"size:36;not null;index" json:"-"`
	Position  int                    `gorm:"not null" json:"position"`
	PaymentID string                 `gorm:"size:36;not null" json:"payment_id"`
	Kind      entity.DiscrepancyKind `gorm:"size:20;not null" json:"kind"`
	Reference string                 `gorm:"size:100" json:"reference,omitempty"`
	Expected  decimal.Decimal        `gorm:"type:decimal(15,2);not null" json:"expected"`
	Actual    decimal.NullDecimal    `gorm:"type:decimal(15,2)" json:"actual"`
}

// TableName specifies the table name for GORM
func (ReconciliationDiscrepancy) TableName() string {
	return "reconciliation_discrepancies"
}
