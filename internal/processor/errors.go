package processor

import "fmt"

// RetryLimitExceededError is returned when a request is still rate limited
// after every retry has been spent. It unwraps to the last server error.
type RetryLimitExceededError struct {
	Limit int
	Err   error
}

func (e *RetryLimitExceededError) Error() string {
	return fmt.Sprintf("retry limit of %d exceeded: %v", e.Limit, e.Err)
}

func (e *RetryLimitExceededError) Unwrap() error { return e.Err }

// BackoffLimitExceededError is returned when the server keeps rejecting
// requests as too large after the request size has been shrunk Limit times.
type BackoffLimitExceededError struct {
	Limit int
	Err   error
}

func (e *BackoffLimitExceededError) Error() string {
	return fmt.Sprintf("backoff limit of %d exceeded", e.Limit)
}

func (e *BackoffLimitExceededError) Unwrap() error { return e.Err }
