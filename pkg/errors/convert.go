package errors

// CodePair holds the HTTP status and gRPC code for an application error code.
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

var codeMapping = map[string]CodePair{
	ErrInternal:        {500, 13}, // Internal Server Error, INTERNAL
	ErrNotFound:        {404, 5},  // Not Found, NOT_FOUND
	ErrInvalidArgument: {400, 3},  // Bad Request, INVALID_ARGUMENT
	ErrUnauthenticated: {401, 16}, // Unauthorized, UNAUTHENTICATED
	ErrUnauthorized:    {403, 7},  // Forbidden, PERMISSION_DENIED
	ErrConflict:        {409, 6},  // Conflict, ALREADY_EXISTS
	ErrTimeout:         {504, 4},  // Gateway Timeout, DEADLINE_EXCEEDED
	ErrNotImplemented:  {501, 12}, // Not Implemented, UNIMPLEMENTED

	ErrValidation:        {400, 3},  // Bad Request, INVALID_ARGUMENT
	ErrFraudRisk:         {422, 9},  // Unprocessable Entity, FAILED_PRECONDITION
	ErrProvider:          {502, 14}, // Bad Gateway, UNAVAILABLE
	ErrUnsupportedMethod: {400, 3},  // Bad Request, INVALID_ARGUMENT
	ErrInvalidTransition: {409, 9},  // Conflict, FAILED_PRECONDITION
	ErrInvalidSignature:  {401, 16}, // Unauthorized, UNAUTHENTICATED
}

// GetCodeMapping returns the HTTP status and gRPC code for code. Unknown codes
// map to 500 / INTERNAL.
func GetCodeMapping(code string) (int, int) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13
}
