package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
)

// Payment is a single grant disbursement. Amount and Method never change
// after creation; Status only moves along entity.PaymentStatus transitions.
type Payment struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	GrantID   string  `gorm:"size:64;not null;index:idx_payments_grant_created,priority:1" json:"grant_id"`
	GrantType string  `gorm:"size:64" json:"grant_type,omitempty"`
	BatchID   *string `gorm:"size:36;index" json:"batch_id,omitempty"`

	CitizenID      string `gorm:"size:64;index" json:"citizen_id"`
	RecipientName  string `gorm:"size:200" json:"recipient_name"`
	RecipientPhone string `gorm:"size:32" json:"recipient_phone,omitempty"`

	Amount   decimal.Decimal      `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency string               `gorm:"size:3;not null" json:"currency"`
	Method   entity.PaymentMethod `gorm:"size:10;not null;index" json:"method"`

	Bank           BankAccount `gorm:"embedded;embeddedPrefix:bank_" json:"bank_details"`
	CardToken      string      `gorm:"size:255" json:"-"`
	PickupLocation string      `gorm:"size:200" json:"pickup_location,omitempty"`

	Status              entity.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	TransactionID       *string              `gorm:"size:100;index" json:"transaction_id,omitempty"`
	ProviderReference   *string              `gorm:"size:100;index" json:"provider_reference,omitempty"`
	EstimatedSettlement *string              `gorm:"size:32" json:"estimated_settlement,omitempty"`
	RiskScore           int                  `gorm:"default:0" json:"risk_score"`
	ErrorMessage        *string              `json:"error_message,omitempty"`
	SubmittedAt         *time.Time           `json:"submitted_at,omitempty"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
	CreatedAt           time.Time            `gorm:"index:idx_payments_grant_created,priority:2" json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// BankAccount is the persisted form of entity.BankDetails.
type BankAccount struct {
	AccountNumber string `gorm:"size:20" json:"account_number,omitempty"`
	BranchCode    string `gorm:"size:10" json:"branch_code,omitempty"`
	Code          string `gorm:"size:10" json:"bank_code,omitempty"`
	AccountType   string `gorm:"size:20" json:"account_type,omitempty"`
}

// BankDetails returns the payment's recipient bank details.
func (p *Payment) BankDetails() entity.BankDetails {
	return entity.BankDetails{
		AccountNumber: p.Bank.AccountNumber,
		BranchCode:    p.Bank.BranchCode,
		BankCode:      p.Bank.Code,
		AccountType:   p.Bank.AccountType,
	}
}

// Recipient rebuilds the recipient value object.
func (p *Payment) Recipient() entity.Recipient {
	return entity.Recipient{
		CitizenID:      p.CitizenID,
		Name:           p.RecipientName,
		Phone:          p.RecipientPhone,
		BankDetails:    p.BankDetails(),
		CardToken:      p.CardToken,
		PickupLocation: p.PickupLocation,
	}
}

// SetRecipient copies r onto the payment's recipient columns.
func (p *Payment) SetRecipient(r entity.Recipient) {
	p.CitizenID = r.CitizenID
	p.RecipientName = r.Name
	p.RecipientPhone = r.Phone
	p.Bank = BankAccount{
		AccountNumber: r.BankDetails.AccountNumber,
		BranchCode:    r.BankDetails.BranchCode,
		Code:          r.BankDetails.BankCode,
		AccountType:   r.BankDetails.AccountType,
	}
	p.CardToken = r.CardToken
	p.PickupLocation = r.PickupLocation
}

// ExternalReference returns the reference used to match the payment against
// settlement records: the provider reference, else the transaction id.
func (p *Payment) ExternalReference() string {
	if p.ProviderReference != nil && *p.ProviderReference != "" {
		return *p.ProviderReference
	}
	if p.TransactionID != nil {
		return *p.TransactionID
	}
	return ""
}
