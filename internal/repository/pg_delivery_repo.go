package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radugrosu/zero2prod/internal/domain"
)

type pgDeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewPgDeliveryRepository returns a DeliveryRepository backed by PostgreSQL.
func NewPgDeliveryRepository(pool *pgxpool.Pool) DeliveryRepository {
	return &pgDeliveryRepository{pool: pool}
}

func (r *pgDeliveryRepository) EnqueueIssue(ctx context.Context, ownerID uuid.UUID, key string, issue *domain.NewsletterIssue) (*EnqueueOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The insert blocks if a concurrent transaction holds an uncommitted
	// row for the same (owner, key), so a duplicate submission waits for
	// the first one to finish rather than racing it.
	tag, err := tx.Exec(ctx, `
		INSERT INTO idempotency (user_id, idempotency_key, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING`,
		ownerID, key, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert idempotency marker: %w", err)
	}

	if tag.RowsAffected() == 0 {
		resp, err := lockSavedResponse(ctx, tx, ownerID, key)
		if err != nil {
			return nil, err
		}
		return &EnqueueOutcome{Started: false, Response: resp}, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO newsletter_issues
			(newsletter_issue_id, title, text_content, html_content, published_at)
		VALUES ($1, $2, $3, $4, $5)`,
		issue.ID, issue.Title, issue.TextContent, issue.HTMLContent, issue.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert newsletter issue: %w", err)
	}

	emails, err := confirmedSubscriberEmails(ctx, tx)
	if err != nil {
		return nil, err
	}

	outcome := &EnqueueOutcome{Started: true}
	now := time.Now().UTC()
	for _, email := range emails {
		// A malformed historical record must not block delivery to
		// everyone else: skip it here, the caller logs the aggregate.
		if _, err := domain.ParseEmail(email); err != nil {
			outcome.SkippedInvalid++
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO issue_delivery_queue
				(newsletter_issue_id, subscriber_email, enqueued_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (newsletter_issue_id, subscriber_email) DO NOTHING`,
			issue.ID, email, now,
		)
		if err != nil {
			return nil, fmt.Errorf("enqueue delivery task: %w", err)
		}
		outcome.Enqueued += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}
	return outcome, nil
}

// lockSavedResponse reads the saved response for a committed (owner, key)
// marker, holding its row lock until the enclosing transaction ends.
// A marker without a response means a previous submission crashed between
// committing the outbox write and saving its response: the issue and its
// tasks exist and will be delivered, but the response can no longer be
// replayed, so the caller is told to retry later.
func lockSavedResponse(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, key string) (*domain.StoredResponse, error) {
	var (
		statusCode  *int16
		headersJSON []byte
		body        []byte
	)
	err := tx.QueryRow(ctx, `
		SELECT response_status_code, response_headers, response_body
		FROM idempotency
		WHERE user_id = $1 AND idempotency_key = $2
		FOR UPDATE`,
		ownerID, key,
	).Scan(&statusCode, &headersJSON, &body)
	if err != nil {
		return nil, fmt.Errorf("read saved response: %w", err)
	}
	if statusCode == nil {
		return nil, domain.ErrSubmissionInFlight
	}

	var headers []domain.HeaderPair
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &headers); err != nil {
			return nil, fmt.Errorf("decode saved headers: %w", err)
		}
	}
	return &domain.StoredResponse{
		StatusCode: int(*statusCode),
		Headers:    headers,
		Body:       body,
	}, nil
}

func confirmedSubscriberEmails(ctx context.Context, tx pgx.Tx) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT email FROM subscriptions WHERE status = 'confirmed'`)
	if err != nil {
		return nil, fmt.Errorf("query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan subscriber email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *pgDeliveryRepository) SaveResponse(ctx context.Context, ownerID uuid.UUID, key string, resp *domain.StoredResponse) error {
	headersJSON, err := json.Marshal(resp.Headers)
	if err != nil {
		return fmt.Errorf("encode response headers: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE idempotency
		SET response_status_code = $3,
		    response_headers = $4,
		    response_body = $5
		WHERE user_id = $1 AND idempotency_key = $2`,
		ownerID, key, int16(resp.StatusCode), headersJSON, resp.Body,
	)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

func (r *pgDeliveryRepository) ClaimTask(ctx context.Context) (TaskClaim, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}

	var (
		task  domain.DeliveryTask
		issue domain.NewsletterIssue
	)
	err = tx.QueryRow(ctx, `
		SELECT q.newsletter_issue_id, q.subscriber_email, q.n_retries, q.enqueued_at,
		       i.title, i.text_content, i.html_content, i.published_at
		FROM issue_delivery_queue q
		JOIN newsletter_issues i USING (newsletter_issue_id)
		LIMIT 1
		FOR UPDATE OF q SKIP LOCKED`,
	).Scan(
		&task.IssueID, &task.SubscriberEmail, &task.Retries, &task.EnqueuedAt,
		&issue.Title, &issue.TextContent, &issue.HTMLContent, &issue.PublishedAt,
	)
	if err != nil {
		tx.Rollback(ctx) //nolint:errcheck
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueueEmpty
		}
		return nil, fmt.Errorf("claim delivery task: %w", err)
	}
	issue.ID = task.IssueID

	return &pgTaskClaim{tx: tx, task: task, issue: &issue}, nil
}

func (r *pgDeliveryRepository) QueueDepth(ctx context.Context) (int, error) {
	var depth int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM issue_delivery_queue`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("count delivery queue: %w", err)
	}
	return depth, nil
}

// pgTaskClaim holds the claiming transaction open, so the row lock taken by
// ClaimTask is released only when one of the terminal methods commits (or
// the process dies and the transaction aborts, making the row reclaimable).
type pgTaskClaim struct {
	tx    pgx.Tx
	task  domain.DeliveryTask
	issue *domain.NewsletterIssue
}

func (c *pgTaskClaim) Task() domain.DeliveryTask      { return c.task }
func (c *pgTaskClaim) Issue() *domain.NewsletterIssue { return c.issue }

func (c *pgTaskClaim) Complete(ctx context.Context) error {
	return c.deleteAndCommit(ctx)
}

func (c *pgTaskClaim) Skip(ctx context.Context) error {
	return c.deleteAndCommit(ctx)
}

func (c *pgTaskClaim) deleteAndCommit(ctx context.Context) error {
	_, err := c.tx.Exec(ctx, `
		DELETE FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		c.task.IssueID, c.task.SubscriberEmail,
	)
	if err != nil {
		c.tx.Rollback(ctx) //nolint:errcheck
		return fmt.Errorf("delete delivery task: %w", err)
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit task completion: %w", err)
	}
	return nil
}

func (c *pgTaskClaim) Retry(ctx context.Context) error {
	_, err := c.tx.Exec(ctx, `
		UPDATE issue_delivery_queue
		SET n_retries = n_retries + 1
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		c.task.IssueID, c.task.SubscriberEmail,
	)
	if err != nil {
		// Rolling back still releases the claim; only the counter is lost.
		c.tx.Rollback(ctx) //nolint:errcheck
		return fmt.Errorf("bump retry counter: %w", err)
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit task release: %w", err)
	}
	return nil
}

func (c *pgTaskClaim) Release(ctx context.Context) error {
	return c.tx.Rollback(ctx)
}
