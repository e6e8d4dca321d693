package usagewatch

import "errors"

var (
	// ErrNoCredential is returned when a refresh is attempted without a
	// stored session credential. It is user-actionable and never retried.
	ErrNoCredential = errors.New("no session credential")

	// ErrCredentialNotFound is returned by a CredentialStore for an
	// unknown credential name.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrKeyNotFound is returned by a Storage for an absent key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAttemptTimeout is returned when a single retry attempt exceeds
	// its per-attempt timeout.
	ErrAttemptTimeout = errors.New("attempt timed out")

	// ErrAttemptsExhausted is returned when every retry attempt failed
	// without producing a more specific error.
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
)
