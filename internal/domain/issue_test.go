package domain_test

import (
	"strings"
	"testing"

	"github.com/radugrosu/zero2prod/internal/domain"
)

func TestPublishRequest_Validate(t *testing.T) {
	valid := domain.PublishRequest{
		Title:       "Hi",
		TextContent: "body",
		HTMLContent: "<p>body</p>",
	}

	tests := []struct {
		name        string
		mutate      func(*domain.PublishRequest)
		expectedErr error
	}{
		{"valid", func(*domain.PublishRequest) {}, nil},
		{"empty title", func(r *domain.PublishRequest) { r.Title = "" }, domain.ErrInvalidTitle},
		{"oversized title", func(r *domain.PublishRequest) { r.Title = strings.Repeat("x", 257) }, domain.ErrInvalidTitle},
		{"empty text", func(r *domain.PublishRequest) { r.TextContent = "" }, domain.ErrInvalidContent},
		{"empty html", func(r *domain.PublishRequest) { r.HTMLContent = "" }, domain.ErrInvalidContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			if err := req.Validate(); err != tc.expectedErr {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestNewIssue(t *testing.T) {
	req := domain.PublishRequest{Title: "Hi", TextContent: "body", HTMLContent: "<p>body</p>"}

	a := domain.NewIssue(req)
	b := domain.NewIssue(req)

	if a.ID == b.ID {
		t.Fatal("expected distinct issue IDs per submission")
	}
	if a.Title != req.Title || a.TextContent != req.TextContent || a.HTMLContent != req.HTMLContent {
		t.Fatal("issue does not carry the request payload")
	}
	if a.PublishedAt.IsZero() {
		t.Fatal("expected a published timestamp")
	}
}

func TestValidateIdempotencyKey(t *testing.T) {
	if err := domain.ValidateIdempotencyKey(""); err != domain.ErrMissingIdempotency {
		t.Fatalf("expected ErrMissingIdempotency, got %v", err)
	}
	if err := domain.ValidateIdempotencyKey(strings.Repeat("k", 51)); err != domain.ErrInvalidIdempotency {
		t.Fatalf("expected ErrInvalidIdempotency, got %v", err)
	}
	if err := domain.ValidateIdempotencyKey("k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
