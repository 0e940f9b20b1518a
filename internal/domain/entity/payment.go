package entity

import "strings"

// PaymentStatus is the lifecycle status of a grant payment.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusSubmitted     PaymentStatus = "SUBMITTED"
	PaymentStatusCompleted     PaymentStatus = "COMPLETED"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusHeldForReview PaymentStatus = "HELD_FOR_REVIEW"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:       {PaymentStatusSubmitted, PaymentStatusFailed, PaymentStatusHeldForReview},
	PaymentStatusHeldForReview: {PaymentStatusSubmitted, PaymentStatusFailed},
	PaymentStatusSubmitted:     {PaymentStatusCompleted, PaymentStatusFailed},
}

// CanTransitionTo reports whether the state machine allows s -> to.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// PaymentMethod is the settlement rail a payment is dispatched on.
type PaymentMethod string

const (
	PaymentMethodEFT  PaymentMethod = "eft"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

// PaymentMethods lists the supported methods.
var PaymentMethods = []PaymentMethod{PaymentMethodEFT, PaymentMethodCard, PaymentMethodCash}

// ParsePaymentMethod normalizes s and reports whether it names a supported method.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PaymentMethods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// RequiresBankDetails reports whether the method needs validated bank details.
func (m PaymentMethod) RequiresBankDetails() bool {
	return m == PaymentMethodEFT || m == PaymentMethodCard
}

// BankDetails identifies the recipient account.
type BankDetails struct {
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=16"`
	BranchCode    string `json:"branch_code" validate:"required,numeric,len=6"`
	BankCode      string `json:"bank_code" validate:"required,alphanum,max=10"`
	AccountType   string `json:"account_type" validate:"required,oneof=cheque savings transmission"`
}

// IsZero reports whether no bank detail was supplied.
func (b BankDetails) IsZero() bool {
	return b == BankDetails{}
}

// SameAccount reports whether b and other point at the same account.
func (b BankDetails) SameAccount(other BankDetails) bool {
	return b.AccountNumber == other.AccountNumber && b.BankCode == other.BankCode
}

// Recipient is the beneficiary of a grant payment.
type Recipient struct {
	CitizenID      string      `json:"citizen_id"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone"`
	BankDetails    BankDetails `json:"bank_details"`
	CardToken      string      `json:"card_token,omitempty"`
	PickupLocation string      `json:"pickup_location,omitempty"`
}
