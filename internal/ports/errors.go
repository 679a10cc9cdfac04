package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these sentinels
// so callers can branch with errors.Is.
var (
	// General errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")
	ErrConfiguration   = errors.New("invalid or missing configuration")

	// Request / entity errors
	ErrValidation = errors.New("invalid request parameters or format")
	ErrNotFound   = errors.New("resource not found")

	// Business-rule rejections of a trade
	ErrInsufficientBalance = errors.New("insufficient session balance for trade")
	ErrLimitExceeded       = errors.New("trade notional exceeds session position limit")

	// Lifecycle errors
	ErrInvalidState = errors.New("operation not allowed in current entity state")

	// Collaborator errors
	ErrPriceUnavailable = errors.New("price unavailable for symbol")
	ErrPersistence      = errors.New("persistence operation failed")
)
