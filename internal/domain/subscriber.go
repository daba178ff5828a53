package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus tracks the confirmation lifecycle of a subscription.
type SubscriberStatus string

const (
	StatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	StatusConfirmed           SubscriberStatus = "confirmed"
)

// Subscriber is a newsletter subscription record. Only confirmed subscribers
// receive issues; the delivery pipeline reads their emails, it never mutates
// subscriber rows.
type Subscriber struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	Name         string           `json:"name"`
	Status       SubscriberStatus `json:"status"`
	SubscribedAt time.Time        `json:"subscribed_at"`
}

// SubscribeRequest is the inbound payload for a new subscription.
type SubscribeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *SubscribeRequest) Validate() error {
	if err := ValidateSubscriberName(r.Name); err != nil {
		return err
	}
	if _, err := ParseEmail(r.Email); err != nil {
		return err
	}
	return nil
}
