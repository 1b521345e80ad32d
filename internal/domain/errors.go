package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRecipient = errors.New("recipient user id must not be empty")
	ErrInvalidTitle     = errors.New("title must be between 1 and 200 characters")
	ErrInvalidMessage   = errors.New("message must be between 1 and 2000 characters")
	ErrRateLimited      = errors.New("notification rate limit exceeded, try again later")
)
