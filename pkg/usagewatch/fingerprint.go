package usagewatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// fingerprintKey is the storage key for the persisted AuthFingerprint.
const fingerprintKey = "auth:fingerprint"

// Tracker detects credential or team changes across process restarts and
// invalidates cached data fetched under the previous identity. There is no
// session to observe continuously; detection is purely by comparing the
// persisted fingerprint against the currently observed one at known
// checkpoints (startup, explicit credential updates).
type Tracker struct {
	storage     Storage
	cache       *Cache
	credentials CredentialStore
	config      Config
	logger      Logger
}

// NewTracker creates a fingerprint tracker over the given storage, cache,
// and credential source.
func NewTracker(storage Storage, cache *Cache, credentials CredentialStore, config Config) *Tracker {
	config = config.withDefaults()
	return &Tracker{
		storage:     storage,
		cache:       cache,
		credentials: credentials,
		config:      config,
		logger:      config.Logger,
	}
}

// HashCredential returns the fixed-length, non-reversible digest used to
// compare credentials without storing them.
func HashCredential(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Reconcile compares the persisted fingerprint against the current
// credential hash and team selector, invalidates stale caches, and then
// unconditionally rewrites the fingerprint as the new baseline. It is
// idempotent and safe to call at any time.
//
// A differing credential hash invalidates every cache entry; a differing
// team id invalidates only the team-scoped entries. A missing persisted
// fingerprint (first run) invalidates nothing.
func (t *Tracker) Reconcile(ctx context.Context) error {
	current, err := t.currentFingerprint(ctx)
	if err != nil {
		return err
	}

	previous, found, err := t.load(ctx)
	if err != nil {
		return err
	}

	if found {
		switch {
		case previous.CookieHash != current.CookieHash:
			t.logger.Info("credential changed, invalidating all caches")
			if err := t.cache.ClearAll(ctx); err != nil {
				return fmt.Errorf("invalidate caches: %w", err)
			}
		case !teamIDEqual(previous.TeamID, current.TeamID):
			t.logger.Info("team changed, invalidating team caches",
				Field{Key: "team", Value: current.TeamID})
			if err := t.cache.ClearTeamScoped(ctx); err != nil {
				return fmt.Errorf("invalidate team caches: %w", err)
			}
		}
	}

	return t.store(ctx, current)
}

// ForceReset clears every cache entry regardless of fingerprint
// comparison and records the current fingerprint. Called after an
// explicit credential update, which is always a staleness boundary.
func (t *Tracker) ForceReset(ctx context.Context) error {
	if err := t.cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("invalidate caches: %w", err)
	}
	current, err := t.currentFingerprint(ctx)
	if err != nil {
		return err
	}
	return t.store(ctx, current)
}

func (t *Tracker) currentFingerprint(ctx context.Context) (AuthFingerprint, error) {
	secret, err := t.credentials.Get(ctx, t.config.CredentialName)
	if err != nil && !errors.Is(err, ErrCredentialNotFound) {
		return AuthFingerprint{}, fmt.Errorf("read credential: %w", err)
	}

	fp := AuthFingerprint{CookieHash: HashCredential(secret)}
	if id, err := strconv.Atoi(t.config.TeamID); err == nil {
		fp.TeamID = &id
	}
	return fp, nil
}

func (t *Tracker) load(ctx context.Context) (AuthFingerprint, bool, error) {
	raw, err := t.storage.Get(ctx, fingerprintKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return AuthFingerprint{}, false, nil
		}
		return AuthFingerprint{}, false, fmt.Errorf("load fingerprint: %w", err)
	}

	var fp AuthFingerprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		// Unreadable baseline: treat as first run.
		t.logger.Warn("discarding corrupt fingerprint",
			Field{Key: "error", Value: err.Error()})
		return AuthFingerprint{}, false, nil
	}
	return fp, true, nil
}

func (t *Tracker) store(ctx context.Context, fp AuthFingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}
	if err := t.storage.Set(ctx, fingerprintKey, raw); err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}
	return nil
}

func teamIDEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
