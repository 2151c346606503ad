package requests

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrNotFound                 = errors.New("request not found")
	ErrPermissionDenied         = errors.New("permission denied")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrConflict                 = errors.New("request was modified concurrently")
	ErrFeedbackAlreadySubmitted = errors.New("feedback already submitted")
	ErrAgentNotFound            = errors.New("agent not found or not active")
)

// Violation is one broken constraint on a named field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string { return v.Field + ": " + v.Message }

// ValidationError reports malformed or out-of-range input. It carries every
// violation found, not just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return "validation failed: " + joinViolations(e.Violations)
}

// BusinessRuleError reports broken domain constraints (date windows,
// percentage sums, staffing bounds). Like ValidationError it carries the
// full set of violations.
type BusinessRuleError struct {
	Violations []Violation
}

func (e *BusinessRuleError) Error() string {
	return "business rule violation: " + joinViolations(e.Violations)
}

func joinViolations(vs []Violation) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// ViolationsOf extracts field violations from validation or business-rule
// errors; it returns nil for any other error.
func ViolationsOf(err error) []Violation {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Violations
	}
	var be *BusinessRuleError
	if errors.As(err, &be) {
		return be.Violations
	}
	return nil
}

func transitionErr(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func deniedErr(reason string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
}
