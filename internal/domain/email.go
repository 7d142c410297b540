package domain

import (
	"regexp"
	"strings"
)

// maxEmailLength follows the RFC 5321 path limit.
const maxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailAddress is a self-validating value object. Construction normalizes the
// raw input to its trimmed, lowercase form; constructing from an already
// normalized string yields an identical value.
type EmailAddress struct {
	value string
}

func NewEmailAddress(raw string) (EmailAddress, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return EmailAddress{}, invalidArgument("email", "email is required")
	}
	if len(v) > maxEmailLength {
		return EmailAddress{}, invalidArgument("email", "email exceeds %d characters", maxEmailLength)
	}
	if !emailPattern.MatchString(v) {
		return EmailAddress{}, invalidArgument("email", "email %q is not a valid address", v)
	}
	return EmailAddress{value: v}, nil
}

func (e EmailAddress) String() string { return e.value }
func (e EmailAddress) IsEmpty() bool  { return e.value == "" }

func (e EmailAddress) MarshalText() ([]byte, error) { return []byte(e.value), nil }
