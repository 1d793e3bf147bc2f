package skillquiz

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey means the generator credential was never configured.
	// Retrying cannot help; the deployment has to be fixed.
	ErrMissingAPIKey = errors.New("generator api key is not configured")

	// ErrRateLimited is reported when the oracle has exhausted its quota.
	ErrRateLimited = errors.New("generator rate limit exceeded")

	// ErrPaymentRequired is reported when the oracle rejects the request for
	// billing reasons.
	ErrPaymentRequired = errors.New("generator billing failure")

	// ErrInvalidParams means the caller started a session without a skill
	// level, subjects, or a positive question count. This is a caller error,
	// not a system failure; no attempt record is created.
	ErrInvalidParams = errors.New("quiz parameters are incomplete")

	// ErrAttemptNotFound is returned for store lookups that match no attempt
	// owned by the caller.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// UpstreamError covers any other non-success oracle response, including
// payloads that fail to parse.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generator returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("generator returned status %d: %s", e.StatusCode, e.Message)
}

// PersistenceError marks a failed attempt-store operation so callers can tell
// it apart from a generation failure when deciding what to show the user.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
