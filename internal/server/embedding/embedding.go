// Package embedding integrates the external feature-extraction service that
// turns image bytes into fixed-length vectors, and provides the similarity
// math over those vectors.
package embedding

import (
	"context"
	"math"
)

// Embedder computes a feature vector for an image. Implementations may be
// slow; callers must never hold catalog locks across a call.
type Embedder interface {
	Embed(ctx context.Context, imageData []byte) ([]float32, error)
}

// Cosine returns the cosine similarity of two vectors in [-1, 1]. Vectors
// of different lengths or zero magnitude score 0, ranking them last.
func Cosine(a, b []float32) float64 {
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
