package usagewatch

import "context"

// Storage defines the durable key-value store the sync core persists
// through. Implementations must survive process restarts; each method is a
// single atomic operation.
type Storage interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys. Used to pattern-match per-team cache
	// keys for bulk invalidation.
	Keys(ctx context.Context) ([]string, error)
}

// CredentialStore provides read-only access to named secrets.
type CredentialStore interface {
	// Get returns the secret for name, or ErrCredentialNotFound.
	Get(ctx context.Context, name string) (string, error)
}

// StaticCredentials is an in-memory CredentialStore for tests and examples.
type StaticCredentials map[string]string

func (s StaticCredentials) Get(_ context.Context, name string) (string, error) {
	secret, ok := s[name]
	if !ok {
		return "", ErrCredentialNotFound
	}
	return secret, nil
}
