package domain

import (
	"net/mail"
	"strings"
)

// SubscriberEmail is a parsed, syntactically valid email address.
// The zero value is never valid; construct via ParseEmail.
type SubscriberEmail struct {
	address string
}

// ParseEmail validates a stored or submitted email address.
//
// Stored addresses are not trusted: the subscriber directory may contain
// historical records that predate validation, so both the enqueue and the
// send paths parse defensively and treat failure as a permanent,
// non-retryable condition for that recipient only.
func ParseEmail(raw string) (SubscriberEmail, error) {
	if raw == "" || len(raw) > 256 {
		return SubscriberEmail{}, ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" || addr.Address != raw {
		return SubscriberEmail{}, ErrInvalidEmail
	}
	return SubscriberEmail{address: raw}, nil
}

func (e SubscriberEmail) String() string { return e.address }

// Characters rejected in subscriber names, to keep stored values safe for
// embedding in email bodies and admin pages.
const forbiddenNameCharacters = `/()"<>\{}`

// ValidateSubscriberName checks a display name supplied at subscription time.
func ValidateSubscriberName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(name) > 256 {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, forbiddenNameCharacters) {
		return ErrInvalidName
	}
	return nil
}
