package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/email"
	"github.com/radugrosu/zero2prod/internal/repository"
)

// SubscriptionService handles subscription intake and confirmation.
// New subscribers start as pending_confirmation and receive a confirmation
// link by email; only confirmed subscribers are picked up by the outbox
// write path when an issue is published.
type SubscriptionService struct {
	repo    repository.SubscriberRepository
	sender  email.Sender
	baseURL string
	logger  *zap.Logger
}

func NewSubscriptionService(
	repo repository.SubscriberRepository,
	sender email.Sender,
	baseURL string,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{repo: repo, sender: sender, baseURL: baseURL, logger: logger}
}

// Subscribe registers a pending subscriber and sends the confirmation email.
func (s *SubscriptionService) Subscribe(ctx context.Context, req domain.SubscribeRequest) (*domain.Subscriber, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub := &domain.Subscriber{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		Status:       domain.StatusPendingConfirmation,
		SubscribedAt: time.Now().UTC(),
	}

	token, err := generateSubscriptionToken()
	if err != nil {
		return nil, fmt.Errorf("generate subscription token: %w", err)
	}

	if err := s.repo.Create(ctx, sub, token); err != nil {
		return nil, err
	}

	if err := s.sendConfirmationEmail(ctx, sub, token); err != nil {
		// The pending row stays; the subscriber can re-submit to receive
		// a fresh confirmation email once the transport recovers.
		s.logger.Error("failed to send confirmation email",
			zap.String("subscriber_id", sub.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("send confirmation email: %w", err)
	}

	s.logger.Info("new subscriber registered", zap.String("subscriber_id", sub.ID.String()))
	return sub, nil
}

// Confirm activates the subscription referenced by token.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrUnknownToken
	}
	return s.repo.Confirm(ctx, token)
}

func (s *SubscriptionService) sendConfirmationEmail(ctx context.Context, sub *domain.Subscriber, token string) error {
	recipient, err := domain.ParseEmail(sub.Email)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token)
	htmlBody := fmt.Sprintf(
		`Welcome to our newsletter!<br/>Click <a href="%s">here</a> to confirm your subscription.`, link)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return s.sender.Send(ctx, recipient, "Welcome!", htmlBody, textBody)
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateSubscriptionToken returns a 25-character random token, long enough
// that guessing a valid token is not feasible for an unauthenticated endpoint.
func generateSubscriptionToken() (string, error) {
	buf := make([]byte, 25)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}
