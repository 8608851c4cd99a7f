package services

import (
	"math"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// confidenceWindow is the number of leading results averaged by
// EstimateConfidence.
const confidenceWindow = 3

// NormaliseScore maps an inner-product score in [-1, 1] onto [0, 1].
func NormaliseScore(score float64) float64 {
	return (score + 1) / 2
}

// EstimateConfidence derives a confidence in [0, 1] from the mean raw
// score of the leading results.
func EstimateConfidence(results []domain.Result) float64 {
	if len(results) == 0 {
		return domain.ConfidenceNotSure
	}

	var sum float64
	var n int
	for _, r := range results[:min(confidenceWindow, len(results))] {
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			continue
		}
		sum += r.Score
		n++
	}
	if n == 0 {
		return domain.ConfidenceNoScores
	}

	return clamp01(NormaliseScore(sum / float64(n)))
}

// PassesSimilarityGate reports whether the best result is similar enough
// to answer from.
func PassesSimilarityGate(results []domain.Result, threshold float64) bool {
	if len(results) == 0 {
		return false
	}
	return NormaliseScore(results[0].Score) >= threshold
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
