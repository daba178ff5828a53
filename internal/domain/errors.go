package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound            = errors.New("not found")
	ErrQueueEmpty          = errors.New("delivery queue is empty")
	ErrInvalidTitle        = errors.New("title must be between 1 and 256 characters")
	ErrInvalidContent      = errors.New("text and html content must not be empty")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidName         = errors.New("name must not be empty or contain forbidden characters")
	ErrMissingIdempotency  = errors.New("idempotency key is required")
	ErrInvalidIdempotency  = errors.New("idempotency key must be between 1 and 50 characters")
	ErrDuplicateSubscriber = errors.New("email is already subscribed")
	ErrUnknownToken        = errors.New("unknown subscription token")
	ErrSubmissionInFlight  = errors.New("a submission with this idempotency key is still being processed, retry later")
)
