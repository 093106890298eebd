package ranking

import "math"

// LogisticRanker scores a feature vector with a fixed linear model through a
// sigmoid. Weights are tuned offline, not learned online.
type LogisticRanker struct {
	Weights map[string]float64
	Bias    float64
}

// NewLogisticRanker returns a ranker with the default weight table.
func NewLogisticRanker() *LogisticRanker {
	return &LogisticRanker{
		Weights: map[string]float64{
			FeatureSemanticSimilarity: 1.2,
			FeatureDomainMatch:        0.6,
			FeatureVerdictSeverity:    0.4,
			FeatureConfidenceWeight:   0.5,
			FeatureKillShotOverlap:    0.3,
			FeatureRecency:            0.2,
		},
		Bias: 0.0,
	}
}

// Score computes sigmoid(bias + Σ weight_i × feature_i). Features absent from
// the vector contribute 0.
func (r *LogisticRanker) Score(features map[string]float64) float64 {
	z := r.Bias
	for name, weight := range r.Weights {
		z += weight * features[name]
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
