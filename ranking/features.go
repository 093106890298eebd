// Package ranking turns a broad nearest-neighbor retrieval into a small,
// diverse, relevance-ranked set of precedents: feature engineering per
// candidate, a logistic scorer, and greedy MMR diversity selection.
package ranking

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/tribunal/vectorstore"
)

// Feature names in the engineered vector.
const (
	FeatureSemanticSimilarity = "semantic_similarity"
	FeatureDomainMatch        = "domain_match"
	FeatureVerdictSeverity    = "verdict_severity"
	FeatureConfidenceWeight   = "confidence_weight"
	FeatureKillShotOverlap    = "kill_shot_overlap"
	FeatureRecency            = "recency"
)

// decisionSeverity weights prior decisions; more severe outcomes rank higher.
// Unrecognized decisions default to 0.5.
var decisionSeverity = map[string]float64{
	"Proceed":       0.2,
	"NeedsMoreData": 0.4,
	"Pivot":         0.6,
	"Kill":          1.0,
}

// defaultSeverity applies to decisions outside the known set.
const defaultSeverity = 0.5

// Candidate is a retrieved precedent with its engineered features and score.
// Candidates are transient: built during one retrieval call, trimmed to a
// Precedent before leaving the engine.
type Candidate struct {
	ID        string
	Document  vectorstore.Document
	Metadata  vectorstore.Metadata
	Embedding []float64
	Distance  float64
	Features  map[string]float64
	Score     float64
}

// CosineSimilarity computes cosine similarity safely: empty, mismatched, or
// zero-norm vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeDistance converts a vector distance to a similarity in [0,1].
func NormalizeDistance(distance float64) float64 {
	if distance < 0 {
		return 0.0
	}
	return 1.0 / (1.0 + distance)
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenSet lower-cases text and extracts its alphanumeric tokens.
func tokenSet(text string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// KillShotOverlap computes token-set Jaccard similarity between a precedent's
// kill shots (title + description) and the current document text.
func KillShotOverlap(killShots []vectorstore.KillShot, text string) float64 {
	if len(killShots) == 0 || text == "" {
		return 0.0
	}
	textTokens := tokenSet(text)
	if len(textTokens) == 0 {
		return 0.0
	}

	ksTokens := make(map[string]struct{})
	for _, ks := range killShots {
		for tok := range tokenSet(ks.Title) {
			ksTokens[tok] = struct{}{}
		}
		for tok := range tokenSet(ks.Description) {
			ksTokens[tok] = struct{}{}
		}
	}
	if len(ksTokens) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range textTokens {
		if _, ok := ksTokens[tok]; ok {
			intersection++
		}
	}
	union := len(textTokens) + len(ksTokens) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// RecencyScore maps an RFC 3339 timestamp to 1/(1+days since). Missing or
// unparseable timestamps score 0.
func RecencyScore(timestamp string, now time.Time) float64 {
	if timestamp == "" {
		return 0.0
	}
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return 0.0
	}
	days := int(now.Sub(ts).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return 1.0 / (1.0 + float64(days))
}

// BuildFeatures engineers the fixed-size named feature vector for one
// retrieved neighbor against the current query.
func BuildFeatures(n vectorstore.Neighbor, queryEmbedding []float64, domain, text string, now time.Time) map[string]float64 {
	similarity := NormalizeDistance(n.Distance)
	if len(n.Embedding) > 0 {
		if cos := CosineSimilarity(queryEmbedding, n.Embedding); cos > similarity {
			similarity = cos
		}
	}

	domainMatch := 0.0
	if domain != "" && n.Metadata.Domain == domain {
		domainMatch = 1.0
	}

	severity, ok := decisionSeverity[n.Metadata.Decision]
	if !ok {
		severity = defaultSeverity
	}

	return map[string]float64{
		FeatureSemanticSimilarity: similarity,
		FeatureDomainMatch:        domainMatch,
		FeatureVerdictSeverity:    severity,
		FeatureConfidenceWeight:   n.Metadata.Confidence,
		FeatureKillShotOverlap:    KillShotOverlap(n.Document.KillShots, text),
		FeatureRecency:            RecencyScore(n.Metadata.Timestamp, now),
	}
}
