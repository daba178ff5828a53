package service_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/repository"
	"github.com/radugrosu/zero2prod/internal/service"
)

var validPublish = domain.PublishRequest{
	Title:       "Hi",
	TextContent: "body",
	HTMLContent: "<p>body</p>",
}

func newPublishService(subscribers ...string) (*service.PublishService, *repository.MockDeliveryRepository) {
	repo := repository.NewMockDeliveryRepository()
	repo.Subscribers = subscribers
	return service.NewPublishService(repo, zap.NewNop()), repo
}

func TestPublishService_Publish(t *testing.T) {
	svc, repo := newPublishService("a@example.com", "b@example.com", "c@example.com")
	ctx := context.Background()
	owner := uuid.New()

	resp, duplicate, err := svc.Publish(ctx, owner, "k1", validPublish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if duplicate {
		t.Fatal("expected duplicate=false for a new submission")
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	if got := repo.Issues(); got != 1 {
		t.Fatalf("expected 1 issue row, got %d", got)
	}
	if got := len(repo.Tasks()); got != 3 {
		t.Fatalf("expected 3 delivery tasks, got %d", got)
	}
}

func TestPublishService_Publish_ReplaysSavedResponse(t *testing.T) {
	svc, repo := newPublishService("a@example.com", "b@example.com", "c@example.com")
	ctx := context.Background()
	owner := uuid.New()

	first, _, err := svc.Publish(ctx, owner, "k1", validPublish)
	if err != nil {
		t.Fatalf("first submission: %v", err)
	}

	// Resubmitting the same (owner, key) with any payload must return the
	// original response unchanged and create nothing new.
	other := validPublish
	other.Title = "Completely different"
	second, duplicate, err := svc.Publish(ctx, owner, "k1", other)
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	if !duplicate {
		t.Fatal("expected duplicate=true on resubmission")
	}
	if second.StatusCode != first.StatusCode || !bytes.Equal(second.Body, first.Body) {
		t.Fatal("expected byte-identical replay of the saved response")
	}
	if got := repo.Issues(); got != 1 {
		t.Fatalf("expected still 1 issue row, got %d", got)
	}
	if got := len(repo.Tasks()); got != 3 {
		t.Fatalf("expected still 3 delivery tasks, got %d", got)
	}
}

func TestPublishService_Publish_DifferentOwnersShareKeys(t *testing.T) {
	svc, repo := newPublishService("a@example.com")
	ctx := context.Background()

	if _, _, err := svc.Publish(ctx, uuid.New(), "k1", validPublish); err != nil {
		t.Fatalf("owner one: %v", err)
	}
	_, duplicate, err := svc.Publish(ctx, uuid.New(), "k1", validPublish)
	if err != nil {
		t.Fatalf("owner two: %v", err)
	}
	if duplicate {
		t.Fatal("key space is per-owner: same key for another owner must start fresh")
	}
	if got := repo.Issues(); got != 2 {
		t.Fatalf("expected 2 issue rows, got %d", got)
	}
}

func TestPublishService_Publish_SkipsMalformedStoredEmails(t *testing.T) {
	svc, repo := newPublishService("good@example.com", "not-an-email", "also.good@example.com")

	_, _, err := svc.Publish(context.Background(), uuid.New(), "k1", validPublish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(repo.Tasks()); got != 2 {
		t.Fatalf("expected 2 tasks (one malformed record skipped), got %d", got)
	}
}

func TestPublishService_Publish_Validation(t *testing.T) {
	svc, _ := newPublishService()
	ctx := context.Background()
	owner := uuid.New()

	if _, _, err := svc.Publish(ctx, owner, "", validPublish); err != domain.ErrMissingIdempotency {
		t.Fatalf("expected ErrMissingIdempotency, got %v", err)
	}

	bad := validPublish
	bad.Title = ""
	if _, _, err := svc.Publish(ctx, owner, "k1", bad); err != domain.ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestPublishService_Publish_StoreUnavailableFailsClosed(t *testing.T) {
	svc, repo := newPublishService("a@example.com")
	repo.EnqueueErr = errors.New("connection refused")

	_, _, err := svc.Publish(context.Background(), uuid.New(), "k1", validPublish)
	if err == nil {
		t.Fatal("expected an error when the store is unavailable")
	}
	if got := repo.Issues(); got != 0 {
		t.Fatalf("expected no side effects, got %d issues", got)
	}
}

func TestPublishService_Publish_InFlightSubmissionConflicts(t *testing.T) {
	svc, repo := newPublishService("a@example.com")
	ctx := context.Background()
	owner := uuid.New()

	// Simulate a crash between the outbox commit and the response save:
	// marker present, response missing.
	repo.SaveResponseErr = errors.New("connection reset")
	if _, _, err := svc.Publish(ctx, owner, "k1", validPublish); err == nil {
		t.Fatal("expected save failure to surface")
	}

	repo.SaveResponseErr = nil
	_, _, err := svc.Publish(ctx, owner, "k1", validPublish)
	if !errors.Is(err, domain.ErrSubmissionInFlight) {
		t.Fatalf("expected ErrSubmissionInFlight, got %v", err)
	}
	if got := repo.Issues(); got != 1 {
		t.Fatalf("retry must not double-create the issue, got %d", got)
	}
}
