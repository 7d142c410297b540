package domain_test

import (
	"errors"
	"strings"
	"testing"

	"taskboard/internal/domain"
)

func TestEmailAddressNormalizes(t *testing.T) {
	email, err := domain.NewEmailAddress("User@Example.COM ")
	if err != nil {
		t.Fatalf("new email: %v", err)
	}
	if email.String() != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", email.String())
	}
	again, err := domain.NewEmailAddress(email.String())
	if err != nil {
		t.Fatalf("renormalize: %v", err)
	}
	if again != email {
		t.Fatalf("normalization not idempotent: %q vs %q", again.String(), email.String())
	}
}

func TestEmailAddressRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"spaces in@example.com",
		"missing@tld",
		"a@" + strings.Repeat("x", 250) + ".com",
	}
	for _, raw := range cases {
		if _, err := domain.NewEmailAddress(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		} else {
			var argErr *domain.ArgumentError
			if !errors.As(err, &argErr) {
				t.Errorf("expected ArgumentError for %q, got %T", raw, err)
			}
		}
	}
}
