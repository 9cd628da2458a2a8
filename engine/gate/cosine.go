// Package gate decides, from the latest user utterance, whether the external
// knowledge base is stale enough to refresh. It compares the utterance
// embedding against a fixed set of reference trigger phrases by cosine
// similarity and fires when the maximum meets the threshold.
package gate

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched
// lengths or a zero-magnitude vector yield 0: similarity is undefined there
// and the gate fails closed rather than erroring.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
