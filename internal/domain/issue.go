package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterIssue is the core domain entity: a published issue awaiting
// delivery to confirmed subscribers. Immutable after creation.
type NewsletterIssue struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	TextContent string    `json:"text_content"`
	HTMLContent string    `json:"html_content"`
	PublishedAt time.Time `json:"published_at"`
}

// DeliveryTask is one (issue, recipient) unit of pending work in the outbox.
// Its identity is the (IssueID, SubscriberEmail) pair; the row is deleted on
// terminal success or permanent failure and kept in place for retry otherwise.
type DeliveryTask struct {
	IssueID         uuid.UUID `json:"newsletter_issue_id"`
	SubscriberEmail string    `json:"subscriber_email"`
	Retries         int       `json:"n_retries"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

// PublishRequest is the inbound payload for a newsletter submission.
type PublishRequest struct {
	Title       string `json:"title"`
	TextContent string `json:"text_content"`
	HTMLContent string `json:"html_content"`
}

func (r *PublishRequest) Validate() error {
	if r.Title == "" || len(r.Title) > 256 {
		return ErrInvalidTitle
	}
	if r.TextContent == "" || r.HTMLContent == "" {
		return ErrInvalidContent
	}
	return nil
}

// NewIssue builds a NewsletterIssue from a validated request.
func NewIssue(req PublishRequest) *NewsletterIssue {
	return &NewsletterIssue{
		ID:          uuid.New(),
		Title:       req.Title,
		TextContent: req.TextContent,
		HTMLContent: req.HTMLContent,
		PublishedAt: time.Now().UTC(),
	}
}

// ValidateIdempotencyKey enforces the key format accepted from the
// X-Idempotency-Key header.
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return ErrMissingIdempotency
	}
	if len(key) > 50 {
		return ErrInvalidIdempotency
	}
	return nil
}
