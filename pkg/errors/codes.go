package errors

// Application error codes. Each code maps to an HTTP status and a gRPC code
// in codeMapping.
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"

	// Payment specific codes.
	ErrValidation        = "VALIDATION_FAILED"
	ErrFraudRisk         = "FRAUD_RISK"
	ErrProvider          = "PROVIDER_ERROR"
	ErrUnsupportedMethod = "UNSUPPORTED_METHOD"
	ErrInvalidTransition = "INVALID_STATUS_TRANSITION"
	ErrInvalidSignature  = "INVALID_SIGNATURE"
)
