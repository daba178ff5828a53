package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/repository"
)

// PublishService is the issue submission handler: it turns an authenticated
// publish request into a committed outbox write, exactly once per
// (owner, idempotency key), and hands the saved response back for replay on
// duplicates. Actual delivery is the workers' job.
type PublishService struct {
	repo   repository.DeliveryRepository
	logger *zap.Logger
}

func NewPublishService(repo repository.DeliveryRepository, logger *zap.Logger) *PublishService {
	return &PublishService{repo: repo, logger: logger}
}

// Publish submits a newsletter issue for delivery.
//
// The returned response must be relayed verbatim (status, headers, body) so
// a retried submission observes a byte-identical reply. duplicate=true means
// the response was replayed from a previous submission with the same key and
// no new issue was created.
func (s *PublishService) Publish(
	ctx context.Context,
	ownerID uuid.UUID,
	idempotencyKey string,
	req domain.PublishRequest,
) (resp *domain.StoredResponse, duplicate bool, err error) {
	if err := domain.ValidateIdempotencyKey(idempotencyKey); err != nil {
		return nil, false, err
	}
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	issue := domain.NewIssue(req)

	// No side effect runs before this call, and everything it does —
	// idempotency marker, issue row, delivery tasks — commits atomically.
	outcome, err := s.repo.EnqueueIssue(ctx, ownerID, idempotencyKey, issue)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue issue: %w", err)
	}
	if !outcome.Started {
		return outcome.Response, true, nil
	}

	if outcome.SkippedInvalid > 0 {
		s.logger.Warn("skipped subscribers with malformed stored emails",
			zap.String("newsletter_issue_id", issue.ID.String()),
			zap.Int("skipped", outcome.SkippedInvalid),
		)
	}
	s.logger.Info("newsletter issue accepted",
		zap.String("newsletter_issue_id", issue.ID.String()),
		zap.Int("recipients", outcome.Enqueued),
	)

	resp = acceptedResponse(issue.ID)
	// The outbox write is already committed: even if saving the response
	// fails, the issue will be delivered, and a retry with the same key can
	// not create a second one.
	if err := s.repo.SaveResponse(ctx, ownerID, idempotencyKey, resp); err != nil {
		return nil, false, fmt.Errorf("save response: %w", err)
	}
	return resp, false, nil
}

func acceptedResponse(issueID uuid.UUID) *domain.StoredResponse {
	body, _ := json.Marshal(map[string]string{
		"newsletter_issue_id": issueID.String(),
		"status":              "accepted",
	})
	return &domain.StoredResponse{
		StatusCode: http.StatusAccepted,
		Headers: []domain.HeaderPair{
			{Name: "Content-Type", Value: "application/json"},
		},
		Body: body,
	}
}
