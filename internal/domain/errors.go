package domain

import "fmt"

// DomainError signals a business-rule rejection: the requested operation is
// well-formed but the aggregate's current state forbids it. Callers surface
// these to the client; they are never retried.
type DomainError struct {
	message string
}

func (e *DomainError) Error() string { return e.message }

func ruleViolation(format string, args ...any) *DomainError {
	return &DomainError{message: fmt.Sprintf(format, args...)}
}

// NewRuleViolation builds a DomainError for rules that need cross-aggregate
// visibility and therefore live in the application layer.
func NewRuleViolation(format string, args ...any) *DomainError {
	return ruleViolation(format, args...)
}

// ArgumentError signals a malformed input detected before any state mutation.
type ArgumentError struct {
	Field   string
	message string
}

func (e *ArgumentError) Error() string { return e.message }

// NewArgumentError builds an ArgumentError for input validation performed
// outside the domain package.
func NewArgumentError(field, format string, args ...any) *ArgumentError {
	return invalidArgument(field, format, args...)
}
