//go:build integration
// +build integration

package firestore

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"

	"cloud.google.com/go/firestore"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

// setupTestStorage connects to the Firestore emulator. Requires
// FIRESTORE_EMULATOR_HOST to be set (e.g. localhost:8080).
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping test: FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "usagewatch-test")
	if err != nil {
		t.Skipf("Skipping test: failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	storage, err := New(client, Config{Collection: "usagewatch_kv_test"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Clear the test collection.
	keys, err := storage.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed during cleanup: %v", err)
	}
	for _, key := range keys {
		if err := storage.Delete(ctx, key); err != nil {
			t.Fatalf("Delete failed during cleanup: %v", err)
		}
	}

	return storage
}

func TestNew_ClientRequired(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestDocID(t *testing.T) {
	if got := docID("cache/team/4"); got != "cache_team_4" {
		t.Errorf("docID mismatch: got %s", got)
	}
	if got := docID("cache:user"); got != "cache:user" {
		t.Errorf("docID should leave colons alone: got %s", got)
	}
}

func TestStorage_GetSet(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	_, err := storage.Get(ctx, "auth:fingerprint")
	if !errors.Is(err, usagewatch.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := storage.Set(ctx, "auth:fingerprint", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := storage.Get(ctx, "auth:fingerprint")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("value mismatch: got %s", got)
	}
}

func TestStorage_Delete(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if err := storage.Set(ctx, "key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := storage.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := storage.Get(ctx, "key"); !errors.Is(err, usagewatch.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}

	// Firestore deletes are idempotent.
	if err := storage.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestStorage_Keys(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	for _, key := range []string{"cache:user", "cache:team:4", "notify:state"} {
		if err := storage.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := storage.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)

	want := []string{"cache:team:4", "cache:user", "notify:state"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d mismatch: got %s, want %s", i, keys[i], want[i])
		}
	}
}
