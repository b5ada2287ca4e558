package main

import "fmt"

// ValidationError means the client request was malformed or missing
// required fields. The provider is never contacted for these.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or empty field: %s", e.Field)
}

// NetworkError means the provider could not be reached after the
// configured retries.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError means the provider call exceeded its deadline. The total
// elapsed time is still bounded by the retry budget.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider call timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ProviderError means the provider answered with a well-formed rejection.
// These are not retried. Reason carries the provider-supplied code when
// there is one, and Blob the response blob when the provider returned one.
type ProviderError struct {
	StatusCode int
	Reason     string
	Blob       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Reason)
}
