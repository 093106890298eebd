// Package storage provides session snapshot persistence backed by NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/tribunal/review"
)

// BucketSessions is the KV bucket holding review session snapshots.
const BucketSessions = "TRIBUNAL_SESSIONS"

// SessionStore persists review sessions in a NATS KV bucket, one key per
// session id, whole snapshot per revision. It implements review.SessionStore.
type SessionStore struct {
	kv jetstream.KeyValue
}

// NewSessionStore creates the store, creating the bucket if it doesn't exist.
func NewSessionStore(ctx context.Context, js jetstream.JetStream) (*SessionStore, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketSessions)
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &SessionStore{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Tribunal %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// Get retrieves a session snapshot by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*review.Session, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, review.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session review.Session
	if err := json.Unmarshal(entry.Value(), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &session, nil
}

// Put overwrites the session snapshot. The orchestrator is the single writer
// for a given session id, so last-write-wins is safe here.
func (s *SessionStore) Put(ctx context.Context, session *review.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if _, err := s.kv.Put(ctx, session.ID, data); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	return nil
}

// List returns all stored sessions. Entries that fail to load or parse are
// skipped rather than failing the whole listing.
func (s *SessionStore) List(ctx context.Context) ([]*review.Session, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list session keys: %w", err)
	}

	sessions := make([]*review.Session, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var session review.Session
		if err := json.Unmarshal(entry.Value(), &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}

	return sessions, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
