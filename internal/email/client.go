package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radugrosu/zero2prod/internal/domain"
)

// SendRequest is the JSON body posted to the email delivery API.
type SendRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Sender abstracts the outbound email send. The delivery worker owns all
// retry behaviour; implementations must attempt each send exactly once.
type Sender interface {
	Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error
}

// Error is a failed send, classified as transient or permanent.
// StatusCode is zero for network-level failures.
type Error struct {
	StatusCode int
	Message    string
	Permanent  bool
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("email send failed: %s", e.Message)
	}
	return fmt.Sprintf("email send failed: status %d: %s", e.StatusCode, e.Message)
}

// IsPermanent reports whether err is a send failure that no retry can fix
// (invalid recipient, rejected content). Anything else — network errors,
// timeouts, 5xx — is treated as transient and left to the outbox to retry.
func IsPermanent(err error) bool {
	var sendErr *Error
	return errors.As(err, &sendErr) && sendErr.Permanent
}

// Client delivers emails through a Postmark-style HTTP API.
// The base URL is injected from config so tests can point to a local mock.
type Client struct {
	baseURL    string
	sender     domain.SubscriberEmail
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL string, sender domain.SubscriberEmail, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		sender:    sender,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts one email to the API. Errors are returned as *Error with the
// transient/permanent classification already applied:
//
//	2xx                  → success
//	408, 429, 5xx        → transient (provider overloaded or unavailable)
//	any other 4xx        → permanent (recipient or content rejected)
//	network error        → transient
func (c *Client) Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(SendRequest{
		From:     c.sender.String(),
		To:       to.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &Error{
		StatusCode: resp.StatusCode,
		Message:    string(msg),
		Permanent:  isPermanentStatus(resp.StatusCode),
	}
}

func isPermanentStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return false
	case code >= 400 && code < 500:
		return true
	default:
		return false
	}
}

// compile-time check that Client implements Sender
var _ Sender = (*Client)(nil)
