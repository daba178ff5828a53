package domain_test

import (
	"strings"
	"testing"

	"github.com/radugrosu/zero2prod/internal/domain"
)

func TestParseEmail(t *testing.T) {
	valid := []string{
		"ursula@example.com",
		"le.guin@dispossessed.org",
		"o+tag@sub.domain.io",
	}
	for _, raw := range valid {
		t.Run(raw, func(t *testing.T) {
			email, err := domain.ParseEmail(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if email.String() != raw {
				t.Fatalf("expected %q, got %q", raw, email.String())
			}
		})
	}

	invalid := []string{
		"",
		"definitely-not-an-email",
		"@missing-local.com",
		"missing-domain@",
		"Ursula <ursula@example.com>",
		"two@at@signs.com",
		strings.Repeat("a", 250) + "@toolong.com",
	}
	for _, raw := range invalid {
		t.Run("invalid/"+raw, func(t *testing.T) {
			if _, err := domain.ParseEmail(raw); err != domain.ErrInvalidEmail {
				t.Fatalf("expected ErrInvalidEmail for %q, got %v", raw, err)
			}
		})
	}
}

func TestValidateSubscriberName(t *testing.T) {
	if err := domain.ValidateSubscriberName("Ursula Le Guin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invalid := []string{
		"",
		"   ",
		`robert"); DROP TABLE subscriptions;--`,
		"<script>",
		"a/b",
		strings.Repeat("x", 257),
	}
	for _, name := range invalid {
		if err := domain.ValidateSubscriberName(name); err != domain.ErrInvalidName {
			t.Fatalf("expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}
