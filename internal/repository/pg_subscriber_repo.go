package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radugrosu/zero2prod/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriberRepository returns a SubscriberRepository backed by PostgreSQL.
func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) Create(ctx context.Context, sub *domain.Subscriber, token string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO subscriptions (id, email, name, status, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.Email, sub.Name, sub.Status, sub.SubscribedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrDuplicateSubscriber
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)`,
		token, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("insert subscription token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit subscriber: %w", err)
	}
	return nil
}

func (r *pgSubscriberRepository) Confirm(ctx context.Context, token string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var subscriberID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT subscriber_id FROM subscription_tokens
		WHERE subscription_token = $1`,
		token,
	).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUnknownToken
		}
		return fmt.Errorf("look up subscription token: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE subscriptions SET status = $1 WHERE id = $2`,
		domain.StatusConfirmed, subscriberID,
	)
	if err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirmation: %w", err)
	}
	return nil
}
