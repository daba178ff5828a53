package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radugrosu/zero2prod/internal/domain"
	"github.com/radugrosu/zero2prod/internal/email"
)

func mustEmail(t *testing.T, raw string) domain.SubscriberEmail {
	t.Helper()
	e, err := domain.ParseEmail(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return e
}

func newClient(t *testing.T, status int) (*email.Client, *email.SendRequest) {
	t.Helper()
	var captured email.SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/email" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Postmark-Server-Token") == "" {
			t.Error("missing auth token header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return email.NewClient(srv.URL, mustEmail(t, "sender@example.com"), "secret-token", time.Second), &captured
}

func TestClient_Send(t *testing.T) {
	client, captured := newClient(t, http.StatusOK)

	err := client.Send(context.Background(), mustEmail(t, "to@example.com"),
		"Hi", "<p>body</p>", "body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.From != "sender@example.com" || captured.To != "to@example.com" {
		t.Fatalf("unexpected addressing: from=%s to=%s", captured.From, captured.To)
	}
	if captured.Subject != "Hi" || captured.HTMLBody != "<p>body</p>" || captured.TextBody != "body" {
		t.Fatal("payload not forwarded verbatim")
	}
}

func TestClient_Send_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{"server error is transient", http.StatusInternalServerError, false},
		{"bad gateway is transient", http.StatusBadGateway, false},
		{"request timeout is transient", http.StatusRequestTimeout, false},
		{"rate limited is transient", http.StatusTooManyRequests, false},
		{"unprocessable is permanent", http.StatusUnprocessableEntity, true},
		{"bad request is permanent", http.StatusBadRequest, true},
		{"unauthorized is permanent", http.StatusUnauthorized, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newClient(t, tc.status)
			err := client.Send(context.Background(), mustEmail(t, "to@example.com"), "s", "h", "t")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := email.IsPermanent(err); got != tc.permanent {
				t.Fatalf("status %d: IsPermanent=%v, want %v", tc.status, got, tc.permanent)
			}
		})
	}
}

func TestClient_Send_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := email.NewClient(srv.URL, mustEmail(t, "sender@example.com"), "tok", time.Second)
	err := client.Send(context.Background(), mustEmail(t, "to@example.com"), "s", "h", "t")
	if err == nil {
		t.Fatal("expected an error")
	}
	if email.IsPermanent(err) {
		t.Fatal("network failures must be classified transient")
	}
}

func TestIsPermanent_ForeignError(t *testing.T) {
	if email.IsPermanent(context.Canceled) {
		t.Fatal("non-transport errors must not be classified permanent")
	}
}
