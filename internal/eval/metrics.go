// Package eval scores retrieval against a golden set of queries with
// known relevant document titles.
package eval

import (
	"math"
	"strings"
)

// RecallAtK is 1 when any expected title appears in the first k
// retrieved titles, else 0.
func RecallAtK(expected, retrieved []string, k int) float64 {
	want := titleSet(expected)
	for _, t := range head(retrieved, k) {
		if _, ok := want[strings.ToLower(t)]; ok {
			return 1
		}
	}
	return 0
}

// NDCGAtK is the normalised discounted cumulative gain of the first k
// retrieved titles with binary relevance. The ideal ordering is the
// same relevances sorted first, so it is 0 only when nothing matched.
func NDCGAtK(expected, retrieved []string, k int) float64 {
	want := titleSet(expected)

	var dcg, idcg float64
	relevant := 0
	for i, t := range head(retrieved, k) {
		if _, ok := want[strings.ToLower(t)]; ok {
			dcg += 1 / math.Log2(float64(i+2))
			relevant++
		}
	}
	for i := 0; i < relevant; i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// MRRAtK is the reciprocal rank of the first expected title within the
// first k retrieved titles, or 0.
func MRRAtK(expected, retrieved []string, k int) float64 {
	want := titleSet(expected)
	for i, t := range head(retrieved, k) {
		if _, ok := want[strings.ToLower(t)]; ok {
			return 1 / float64(i+1)
		}
	}
	return 0
}

func titleSet(titles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func head(titles []string, k int) []string {
	if k < 0 {
		k = 0
	}
	return titles[:min(k, len(titles))]
}
