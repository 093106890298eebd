package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/c360studio/tribunal/review"
)

// MemorySessionStore is an in-memory review.SessionStore for tests and
// single-process runs without NATS. Snapshots are stored as marshaled JSON so
// callers get the same copy semantics as the KV-backed store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

// Get retrieves a session snapshot by id.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*review.Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, review.ErrNotFound
	}

	var session review.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Put overwrites the session snapshot.
func (s *MemorySessionStore) Put(_ context.Context, session *review.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[session.ID] = data
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
