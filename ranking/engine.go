package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/tribunal/vectorstore"
)

// maxKillShotsShown bounds the flaw list in trimmed public results.
const maxKillShotsShown = 3

// Options tune one retrieval call.
type Options struct {
	// Domain is the current document's domain tag. Matching candidates get
	// the domain_match feature; this is a soft bonus, not a filter.
	Domain string

	// DecisionFilter, when set, is an exact-match pre-filter on the prior
	// decision applied at the index, before ranking.
	DecisionFilter string

	// Text is the current document text used for lexical overlap features.
	Text string

	// Lambda overrides the MMR relevance/diversity tradeoff. 0 uses the
	// default.
	Lambda float64
}

// Precedent is the trimmed public form of a ranked candidate. Internal
// scoring fields (feature vector, raw score breakdown) stay in the engine.
type Precedent struct {
	ID              string                 `json:"id"`
	Summary         string                 `json:"summary"`
	Decision        string                 `json:"decision"`
	OverallScore    int                    `json:"overall_score"`
	KillShots       []vectorstore.KillShot `json:"kill_shots,omitempty"`
	Assumptions     []string               `json:"assumptions,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	Domain          string                 `json:"domain"`
	Confidence      float64                `json:"confidence"`
	RankScore       float64                `json:"rank_score"`
	Distance        float64                `json:"distance"`
}

// Retrieval is the result of one RetrieveSimilar call.
type Retrieval struct {
	Precedents []Precedent    `json:"precedents"`
	Stats      DiversityStats `json:"stats"`
}

// Engine ranks vector-index neighbors into a diverse precedent set.
type Engine struct {
	index  vectorstore.Index
	ranker *LogisticRanker
	logger *slog.Logger
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRanker overrides the default scorer.
func WithRanker(r *LogisticRanker) EngineOption {
	return func(e *Engine) {
		e.ranker = r
	}
}

// WithClock overrides the time source (recency feature in tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a ranking engine over the given vector index.
func NewEngine(index vectorstore.Index, opts ...EngineOption) *Engine {
	e := &Engine{
		index:  index,
		ranker: NewLogisticRanker(),
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RetrieveSimilar retrieves a broad candidate pool, engineers features,
// scores, and selects a diverse top-n. Returns at most n precedents, seeded
// with the single highest-scoring candidate.
func (e *Engine) RetrieveSimilar(ctx context.Context, queryEmbedding []float64, n int, opts Options) (*Retrieval, error) {
	if n <= 0 {
		return &Retrieval{}, nil
	}

	// Broad retrieval: 3× the target, never fewer than n+2.
	fetch := 3 * n
	if fetch < n+2 {
		fetch = n + 2
	}

	neighbors, err := e.index.Query(ctx, queryEmbedding, fetch, vectorstore.Filter{Decision: opts.DecisionFilter})
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	if len(neighbors) == 0 {
		return &Retrieval{}, nil
	}

	now := e.now()
	candidates := make([]Candidate, 0, len(neighbors))
	for _, nb := range neighbors {
		features := BuildFeatures(nb, queryEmbedding, opts.Domain, opts.Text, now)
		candidates = append(candidates, Candidate{
			ID:        nb.ID,
			Document:  nb.Document,
			Metadata:  nb.Metadata,
			Embedding: nb.Embedding,
			Distance:  nb.Distance,
			Features:  features,
			Score:     e.ranker.Score(features),
		})
	}

	lambda := opts.Lambda
	if lambda == 0 {
		lambda = DefaultLambda
	}
	selected, stats := SelectMMR(candidates, lambda, n)

	e.logger.Debug("Precedent retrieval complete",
		"fetched", len(neighbors),
		"selected", len(selected),
		"unique_domains", stats.UniqueDomains,
		"unique_decisions", stats.UniqueDecisions)

	precedents := make([]Precedent, 0, len(selected))
	for _, c := range selected {
		precedents = append(precedents, trimCandidate(c))
	}

	return &Retrieval{Precedents: precedents, Stats: stats}, nil
}

// trimCandidate strips internal scoring fields for the public result.
func trimCandidate(c Candidate) Precedent {
	killShots := c.Document.KillShots
	if len(killShots) > maxKillShotsShown {
		killShots = killShots[:maxKillShotsShown]
	}
	return Precedent{
		ID:              c.ID,
		Summary:         c.Document.Summary,
		Decision:        c.Document.Decision,
		OverallScore:    c.Document.OverallScore,
		KillShots:       killShots,
		Assumptions:     c.Document.Assumptions,
		Recommendations: c.Document.Recommendations,
		Domain:          c.Metadata.Domain,
		Confidence:      c.Metadata.Confidence,
		RankScore:       c.Score,
		Distance:        c.Distance,
	}
}
