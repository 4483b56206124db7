// Package vector provides the similarity math used by embedding search.
//
// Entity embeddings are stored as []float32; accumulation happens in
// float64 so long vectors don't lose precision.
package vector

import "math"

// CosineSimilarity computes cosine similarity between two float32 vectors.
// Returns a value in [-1, 1] where 1 = identical direction, 0 = orthogonal.
// Mismatched lengths, empty inputs, and zero vectors all return 0.
//
// Example:
//
//	a := []float32{1.0, 2.0, 3.0}
//	b := []float32{4.0, 5.0, 6.0}
//	sim := CosineSimilarity(a, b) // 0.9746...
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DotProduct computes the dot product of two float32 vectors in float64.
// For unit-length vectors this equals cosine similarity.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// EuclideanSimilarity maps Euclidean distance into (0, 1] via
// 1 / (1 + distance). Identical vectors score 1.
func EuclideanSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}

	return 1.0 / (1.0 + math.Sqrt(sum))
}

// Normalize returns a unit-length copy of the vector. The input is not
// modified. A zero vector normalizes to a zero vector.
func Normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}

	normalized := make([]float32, len(vec))
	if sumSquares == 0 {
		return normalized
	}

	norm := math.Sqrt(sumSquares)
	for i, v := range vec {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
