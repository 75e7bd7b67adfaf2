package core

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("resource belongs to another user")
	ErrNotFound           = errors.New("resource not found")
)

// ErrorKind returns the taxonomy name of err, or "InternalError" when err is
// not one of the package's sentinels.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrInvalidPayload):
		return "InvalidPayload"
	case errors.Is(err, ErrInvalidType):
		return "InvalidType"
	case errors.Is(err, ErrDuplicateIdentity):
		return "DuplicateIdentity"
	case errors.Is(err, ErrInvalidCredentials):
		return "InvalidCredentials"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	default:
		return "InternalError"
	}
}
