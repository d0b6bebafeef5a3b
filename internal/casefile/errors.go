package casefile

import (
	"errors"
	"fmt"

	"github.com/casework/deltatree"
	"github.com/casework/deltatree/internal/storage"
	"github.com/casework/deltatree/internal/vault"
)

// ErrorCode is a stable identifier for a failure class.
type ErrorCode string

const (
	// StaleDelta means the base snapshot moved since the delta was seeded.
	// Discard the delta and edit again.
	StaleDelta ErrorCode = "STALE_DELTA"
	// InvalidArgument means the action was malformed.
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// NotFound means a participant, document or group does not exist.
	NotFound ErrorCode = "NOT_FOUND"
	// Conflict means the participant already exists.
	Conflict ErrorCode = "CONFLICT"
	// Storage means the database rejected a read or write.
	Storage ErrorCode = "STORAGE"
	// Crypto means sealing or opening participant data failed.
	Crypto ErrorCode = "CRYPTO"
	// Internal covers everything else.
	Internal ErrorCode = "INTERNAL"
)

// Error is returned by every Service operation.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf returns the code of err, or Internal when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// classify maps a core error onto a code.
func classify(message string, err error) *Error {
	switch {
	case errors.Is(err, deltatree.ErrStaleDelta):
		return newError(StaleDelta, message, err)
	case errors.Is(err, deltatree.ErrInvalidArgument):
		return newError(InvalidArgument, message, err)
	case errors.Is(err, deltatree.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return newError(NotFound, message, err)
	case errors.Is(err, vault.ErrDecrypt):
		return newError(Crypto, message, err)
	default:
		return newError(Internal, message, err)
	}
}
