package vectorstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory Index for tests and single-process use.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	embedding []float64
	doc       Document
	meta      Metadata
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]*memoryEntry)}
}

// Upsert stores or replaces a document.
func (m *MemoryIndex) Upsert(_ context.Context, id string, embedding []float64, doc Document, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = &memoryEntry{embedding: embedding, doc: doc, meta: meta}
	return nil
}

// Query returns up to k nearest neighbors by cosine distance.
func (m *MemoryIndex) Query(_ context.Context, embedding []float64, k int, filter Filter) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]Neighbor, 0, len(m.entries))
	for id, e := range m.entries {
		if !filter.Matches(e.meta) {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ID:        id,
			Document:  e.doc,
			Metadata:  e.meta,
			Embedding: e.embedding,
			Distance:  cosineDistance(embedding, e.embedding),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Len returns the number of stored documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
