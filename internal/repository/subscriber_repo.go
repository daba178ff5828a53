package repository

import (
	"context"

	"github.com/radugrosu/zero2prod/internal/domain"
)

// SubscriberRepository persists subscription intake and confirmation.
// The delivery pipeline itself only reads confirmed subscriber emails,
// inside the EnqueueIssue transaction.
type SubscriberRepository interface {
	// Create inserts a pending subscriber and its confirmation token in a
	// single transaction. Returns domain.ErrDuplicateSubscriber when the
	// email already exists.
	Create(ctx context.Context, sub *domain.Subscriber, token string) error

	// Confirm flips the subscriber referenced by token to confirmed.
	// Returns domain.ErrUnknownToken when the token does not exist.
	Confirm(ctx context.Context, token string) error
}
