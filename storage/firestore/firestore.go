// Package firestore provides a Firestore implementation of the
// usagewatch.Storage interface, storing each key as one document in a
// collection.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

// Storage implements usagewatch.Storage using Google Cloud Firestore.
type Storage struct {
	client     *firestore.Client
	collection string
}

// Config holds Firestore storage configuration.
type Config struct {
	// Collection is the Firestore collection holding key-value documents
	// (default: "usagewatch_kv").
	Collection string
}

// New creates a new Firestore storage adapter.
func New(client *firestore.Client, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}
	if config.Collection == "" {
		config.Collection = "usagewatch_kv"
	}

	return &Storage{
		client:     client,
		collection: config.Collection,
	}, nil
}

// Get implements usagewatch.Storage.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := s.client.Collection(s.collection).Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, usagewatch.ErrKeyNotFound
		}
		return nil, fmt.Errorf("firestore get: %w", err)
	}

	data := snap.Data()
	value, ok := data["value"].([]byte)
	if !ok {
		return nil, fmt.Errorf("firestore get: document %q has no value field", key)
	}
	return value, nil
}

// Set implements usagewatch.Storage.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Collection(s.collection).Doc(docID(key)).Set(ctx, map[string]interface{}{
		"key":   key,
		"value": value,
	})
	if err != nil {
		return fmt.Errorf("firestore set: %w", err)
	}
	return nil
}

// Delete implements usagewatch.Storage.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(docID(key)).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete: %w", err)
	}
	return nil
}

// Keys implements usagewatch.Storage.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var keys []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore keys: %w", err)
		}
		if key, ok := snap.Data()["key"].(string); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// docID makes a key safe for use as a Firestore document id, which must
// not contain slashes.
func docID(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			out[i] = '_'
		} else {
			out[i] = key[i]
		}
	}
	return string(out)
}
