package dto

import (
	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
)

// SubmitPaymentRequest is the body of POST /api/v1/payments and one item of a
// batch.
type SubmitPaymentRequest struct {
	GrantID   string          `json:"grant_id" validate:"required,max=64"`
	GrantType string          `json:"grant_type" validate:"max=64"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,oneof=eft card cash"`
	Recipient RecipientDTO    `json:"recipient"`
}

// RecipientDTO carries the beneficiary. Bank details are checked by the
// payment service so that a rejected account still leaves a FAILED payment.
type RecipientDTO struct {
	CitizenID      string             `json:"citizen_id" validate:"required,max=64"`
	Name           string             `json:"name" validate:"required,max=200"`
	Phone          string             `json:"phone" validate:"omitempty,max=32"`
	BankDetails    entity.BankDetails `json:"bank_details" validate:"-"`
	CardToken      string             `json:"card_token,omitempty" validate:"omitempty,max=255"`
	PickupLocation string             `json:"pickup_location,omitempty" validate:"omitempty,max=200"`
}

// Recipient converts the DTO into the domain value object.
func (r RecipientDTO) Recipient() entity.Recipient {
	return entity.Recipient{
		CitizenID:      r.CitizenID,
		Name:           r.Name,
		Phone:          r.Phone,
		BankDetails:    r.BankDetails,
		CardToken:      r.CardToken,
		PickupLocation: r.PickupLocation,
	}
}

// SubmitBatchRequest is the body of POST /api/v1/payments/batch.
type SubmitBatchRequest struct {
	Payments []SubmitPaymentRequest `json:"payments" validate:"required,min=1,max=10000,dive"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// VerifyPaymentRequest is the optional body of POST /api/v1/payments/:id/verify.
type VerifyPaymentRequest struct {
	ExternalReference string `json:"external_reference" validate:"omitempty,max=100"`
}

// ReviewDecisionRequest resolves a payment held for manual review.
type ReviewDecisionRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Note    string `json:"note" validate:"omitempty,max=500"`
}
