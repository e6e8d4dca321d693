package redis

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

// setupTestRedis creates a Redis client for testing.
// Requires Redis running on localhost:6379.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		client  redis.UniversalClient
		config  Config
		wantErr bool
	}{
		{
			name:    "nil client",
			client:  nil,
			config:  DefaultConfig(),
			wantErr: true,
		},
		{
			name:    "valid client with default config",
			client:  redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "empty key prefix uses default",
			client:  redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
			config:  Config{KeyPrefix: ""},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := New(tt.client, tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && storage == nil {
				t.Error("expected non-nil storage")
			}
		})
	}
}

func TestStorage_GetSet(t *testing.T) {
	client := setupTestRedis(t)
	storage, err := New(client, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	_, err = storage.Get(ctx, "auth:fingerprint")
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

	// The on-wire key carries the prefix.
	if err := client.Get(ctx, "usagewatch:auth:fingerprint").Err(); err != nil {
		t.Errorf("expected prefixed key in Redis: %v", err)
	}
}

func TestStorage_Delete(t *testing.T) {
	client := setupTestRedis(t)
	storage, err := New(client, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
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

	if err := storage.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestStorage_Keys(t *testing.T) {
	client := setupTestRedis(t)
	storage, err := New(client, Config{KeyPrefix: "keystest:"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"cache:user", "cache:teams", "notify:state"} {
		if err := storage.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	// A key outside the prefix must not show up.
	if err := client.Set(ctx, "unrelated", "v", 0).Err(); err != nil {
		t.Fatalf("raw set failed: %v", err)
	}

	keys, err := storage.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)

	want := []string{"cache:teams", "cache:user", "notify:state"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d mismatch: got %s, want %s", i, keys[i], want[i])
		}
	}
}
