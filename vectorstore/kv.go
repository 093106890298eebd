package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketEvidence is the KV bucket holding the historical decision corpus.
const BucketEvidence = "TRIBUNAL_EVIDENCE"

// kvRecord is the stored form of an indexed document.
type kvRecord struct {
	Embedding []float64 `json:"embedding"`
	Document  Document  `json:"document"`
	Metadata  Metadata  `json:"metadata"`
}

// KVIndex is a NATS JetStream KV-backed Index. Queries scan the bucket and
// rank by cosine distance; the corpus is one record per completed session,
// so a linear scan is the honest cost model at this scale.
type KVIndex struct {
	kv jetstream.KeyValue
}

// NewKVIndex creates a KVIndex, creating the evidence bucket if needed.
func NewKVIndex(ctx context.Context, js jetstream.JetStream) (*KVIndex, error) {
	kv, err := js.KeyValue(ctx, BucketEvidence)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketEvidence,
			Description: "Tribunal decision evidence corpus",
		})
		if err != nil {
			return nil, fmt.Errorf("create evidence bucket: %w", err)
		}
	}
	return &KVIndex{kv: kv}, nil
}

// Upsert stores or replaces a document.
func (x *KVIndex) Upsert(ctx context.Context, id string, embedding []float64, doc Document, meta Metadata) error {
	data, err := json.Marshal(kvRecord{Embedding: embedding, Document: doc, Metadata: meta})
	if err != nil {
		return fmt.Errorf("marshal evidence record: %w", err)
	}
	if _, err := x.kv.Put(ctx, id, data); err != nil {
		return fmt.Errorf("store evidence record: %w", err)
	}
	return nil
}

// Query scans the bucket and returns up to k nearest neighbors.
func (x *KVIndex) Query(ctx context.Context, embedding []float64, k int, filter Filter) ([]Neighbor, error) {
	keys, err := x.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list evidence keys: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(keys))
	for _, key := range keys {
		entry, err := x.kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var rec kvRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		if !filter.Matches(rec.Metadata) {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ID:        key,
			Document:  rec.Document,
			Metadata:  rec.Metadata,
			Embedding: rec.Embedding,
			Distance:  cosineDistance(embedding, rec.Embedding),
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
