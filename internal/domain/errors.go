package domain

import (
	"errors"
	"fmt"
)

// Machine-readable reasons surfaced to callers.
const (
	ReasonInvalidSpec        = "invalid_spec"
	ReasonInvalidOp          = "invalid_op"
	ReasonNotFound           = "not_found"
	ReasonNoAlternative      = "no_alternative"
	ReasonInfeasibleTarget   = "infeasible_target"
	ReasonInfeasibleInsert   = "infeasible_insertion"
	ReasonQueueTimeout       = "queue_timeout"
	ReasonOpTimeout          = "op_timeout"
	ReasonVersionConflict    = "version_conflict"
	ReasonInvariantViolation = "invariant_violation"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrMalformedCoordinates = errors.New("malformed coordinates")
)

// ValidationError reports a malformed trip specification or feedback op.
type ValidationError struct {
	Reason  string
	Message string
}

func NewValidationError(reason, msg string) *ValidationError {
	return &ValidationError{Reason: reason, Message: msg}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Reason, e.Message)
}

// InfeasibleConstraintError reports that no candidate or slot satisfies the constraints.
type InfeasibleConstraintError struct {
	Reason  string
	Message string
}

func NewInfeasibleError(reason, msg string) *InfeasibleConstraintError {
	return &InfeasibleConstraintError{Reason: reason, Message: msg}
}

func (e *InfeasibleConstraintError) Error() string {
	return fmt.Sprintf("infeasible: %s: %s", e.Reason, e.Message)
}

// UpstreamUnavailableError wraps a failed CandidateSource or TravelTimeMatrix call.
// It is recovered locally and never returned to API callers.
type UpstreamUnavailableError struct {
	Service string
	Err     error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// ConcurrencyTimeoutError reports that a feedback op could not be serialized in time.
type ConcurrencyTimeoutError struct {
	Reason  string
	Message string
}

func NewConcurrencyTimeoutError(reason, msg string) *ConcurrencyTimeoutError {
	return &ConcurrencyTimeoutError{Reason: reason, Message: msg}
}

func (e *ConcurrencyTimeoutError) Error() string {
	return fmt.Sprintf("concurrency timeout: %s: %s", e.Reason, e.Message)
}

func (e *ConcurrencyTimeoutError) Retryable() bool { return true }

// ReasonOf extracts the machine-readable reason from err, or "" if it has none.
func ReasonOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var ie *InfeasibleConstraintError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	var ce *ConcurrencyTimeoutError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	if errors.Is(err, ErrSessionNotFound) {
		return ReasonNotFound
	}
	return ""
}

// IsRetryable reports whether the caller may resubmit the same request.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
