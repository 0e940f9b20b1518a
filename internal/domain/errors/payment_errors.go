package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category sentinels. Every typed error below matches exactly one of them
// through errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrFraudRisk          = errors.New("fraud risk")
	ErrProvider           = errors.New("provider error")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedMethod  = errors.New("unsupported payment method")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrDuplicateStatement = errors.New("statement already ingested")

	ErrPaymentNotFound = fmt.Errorf("payment %w", ErrNotFound)
	ErrBatchNotFound   = fmt.Errorf("batch run %w", ErrNotFound)
)

// ValidationError is returned for malformed input. Kind distinguishes bank
// detail failures from other request problems.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

const (
	ValidationKindRequest            = "request"
	ValidationKindInvalidBankDetails = "invalid_bank_details"
)

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a request validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Kind: ValidationKindRequest, Field: field, Reason: reason}
}

// NewInvalidBankDetailsError creates a bank detail validation error.
func NewInvalidBankDetailsError(field, reason string) *ValidationError {
	return &ValidationError{Kind: ValidationKindInvalidBankDetails, Field: field, Reason: reason}
}

// IsInvalidBankDetails reports whether err is a bank detail validation failure.
func IsInvalidBankDetails(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == ValidationKindInvalidBankDetails
}

// FraudRiskError is returned when a payment is held for manual review.
type FraudRiskError struct {
	PaymentID string
	RiskScore int
	Rules     []string
}

func (e *FraudRiskError) Error() string {
	return fmt.Sprintf("payment %s held for review: risk score %d (%s)",
		e.PaymentID, e.RiskScore, strings.Join(e.Rules, ", "))
}

func (e *FraudRiskError) Is(target error) bool {
	return target == ErrFraudRisk
}

// ProviderError is a dispatch or status query failure on a settlement rail.
// Message keeps the provider's own wording for audit.
type ProviderError struct {
	Method  string
	Code    string
	Message string
	Err     error
}

// Provider error codes.
const (
	ProviderCodeMarshal  = "MARSHAL_ERROR"
	ProviderCodeRequest  = "REQUEST_ERROR"
	ProviderCodeAPI      = "API_ERROR"
	ProviderCodeResponse = "RESPONSE_ERROR"
	ProviderCodeParse    = "PARSE_ERROR"
	ProviderCodeRejected = "REJECTED"
	ProviderCodeConfig   = "CONFIG_ERROR"
)

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider %s: %s", e.Method, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// NewProviderError creates a ProviderError.
func NewProviderError(method, code, message string, err error) *ProviderError {
	return &ProviderError{Method: method, Code: code, Message: message, Err: err}
}

// UnsupportedMethodError is returned when a method has no dispatcher or no
// verification path.
type UnsupportedMethodError struct {
	Method    string
	Operation string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("method %q does not support %s", e.Method, e.Operation)
}

func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// InvalidTransitionError is returned when a payment is not in a status the
// requested transition may start from.
type InvalidTransitionError struct {
	PaymentID string
	From      string
	To        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("payment %s cannot move from %s to %s", e.PaymentID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
