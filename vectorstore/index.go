// Package vectorstore provides the vector index abstraction used for
// precedent retrieval, with a NATS KV-backed implementation for production
// and an in-memory implementation for tests.
package vectorstore

import (
	"context"
	"math"
)

// Document is the payload stored alongside an embedding. Fields mirror the
// decision evidence persisted at session completion.
type Document struct {
	Summary         string     `json:"summary"`
	Decision        string     `json:"decision"`
	OverallScore    int        `json:"overall_score"`
	KillShots       []KillShot `json:"kill_shots,omitempty"`
	Assumptions     []string   `json:"assumptions,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`
	Domain          string     `json:"domain"`
}

// KillShot is a critical flaw recorded in a historical document.
type KillShot struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Agent       string `json:"agent,omitempty"`
}

// Metadata holds filterable attributes of an indexed document.
type Metadata struct {
	SessionID  string  `json:"session_id"`
	Decision   string  `json:"decision"`
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp,omitempty"` // RFC 3339
}

// Neighbor is one nearest-neighbor result.
type Neighbor struct {
	ID        string
	Document  Document
	Metadata  Metadata
	Embedding []float64
	Distance  float64
}

// Filter is an exact-match metadata predicate applied before distance
// ranking. Zero values mean no constraint.
type Filter struct {
	Decision string
}

// Matches reports whether metadata satisfies the filter.
func (f Filter) Matches(m Metadata) bool {
	return f.Decision == "" || f.Decision == m.Decision
}

// Index is the abstract vector index consumed by the ranking engine.
type Index interface {
	// Query returns up to k nearest neighbors of the embedding by cosine
	// distance, optionally pre-filtered by an exact-match predicate.
	Query(ctx context.Context, embedding []float64, k int, filter Filter) ([]Neighbor, error)

	// Upsert stores or replaces a document with its embedding.
	Upsert(ctx context.Context, id string, embedding []float64, doc Document, meta Metadata) error
}

// cosineDistance computes 1 - cosine similarity. Mismatched or zero-norm
// vectors yield the maximum distance of 1.
func cosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
