package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/radugrosu/zero2prod/internal/domain"
)

// EnqueueOutcome reports the result of an idempotent issue submission.
// Started=false means a previous submission with the same (owner, key)
// already completed and Response holds its saved response for replay.
type EnqueueOutcome struct {
	Started        bool
	Response       *domain.StoredResponse
	Enqueued       int
	SkippedInvalid int
}

// TaskClaim is a claimed delivery task whose row lock is held until one of
// the terminal methods is called. Exactly one of Complete, Skip, or Retry
// must be invoked; each ends the claiming transaction.
type TaskClaim interface {
	Task() domain.DeliveryTask
	Issue() *domain.NewsletterIssue

	// Complete deletes the task row and commits: terminal success.
	Complete(ctx context.Context) error
	// Skip deletes the task row and commits: terminal permanent failure.
	Skip(ctx context.Context) error
	// Retry keeps the row in place for another claim, bumping its retry
	// counter, and commits.
	Retry(ctx context.Context) error
	// Release returns the task untouched, without counting an attempt.
	// Used when a worker shuts down between claiming and sending.
	Release(ctx context.Context) error
}

// DeliveryRepository defines all persistence operations of the delivery
// pipeline: the idempotency store, the outbox write path, and the queue
// claim used by workers. The pgx implementation is in pg_delivery_repo.go;
// tests use a hand-written mock (mock_delivery_repo.go).
type DeliveryRepository interface {
	// EnqueueIssue runs the outbox write path in a single transaction:
	// the idempotency marker, the issue row, and one delivery task per
	// confirmed subscriber. A repeated (owner, key) blocks until the first
	// submission commits, then returns its saved response instead.
	EnqueueIssue(ctx context.Context, ownerID uuid.UUID, key string, issue *domain.NewsletterIssue) (*EnqueueOutcome, error)

	// SaveResponse persists the response snapshot for later replay.
	// Called once, after EnqueueIssue committed, in its own short
	// transaction.
	SaveResponse(ctx context.Context, ownerID uuid.UUID, key string, resp *domain.StoredResponse) error

	// ClaimTask locks one pending task, skipping rows claimed by other
	// workers. Returns domain.ErrQueueEmpty when no unclaimed task exists.
	ClaimTask(ctx context.Context) (TaskClaim, error)

	// QueueDepth counts the tasks currently awaiting delivery.
	QueueDepth(ctx context.Context) (int, error)
}
