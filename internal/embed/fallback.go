// Package embed assembles the embedding chain used by the retriever:
// an OpenAI-compatible provider, a Redis-backed cache decorator, and a
// deterministic local fallback so embedding keeps working when the
// provider is down.
package embed

import (
	"context"
	"math"

	"github.com/kailas-cloud/ragway/internal/domain"
)

// FallbackEmbedder produces deterministic pseudo-embeddings without any
// external call: character codes are accumulated into a fixed-width vector
// which is then L2-normalized. The output has no semantic meaning beyond
// "identical texts map to identical vectors", so every result is tagged
// Degraded.
type FallbackEmbedder struct {
	dims int
}

// NewFallbackEmbedder creates a fallback embedder with the given width.
func NewFallbackEmbedder(dims int) *FallbackEmbedder {
	return &FallbackEmbedder{dims: dims}
}

// Dimensions returns the vector width.
func (f *FallbackEmbedder) Dimensions() int { return f.dims }

// Embed implements domain.Embedder. It never fails.
func (f *FallbackEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, f.dims)

	// Position-sensitive accumulation: "ab" and "ba" fold differently.
	var acc uint32 = 2166136261
	for i, r := range text {
		acc = (acc ^ uint32(r)) * 16777619
		slot := int(acc % uint32(f.dims))
		vec[slot] += float32(uint8(r)) * float32(1+i%7)
	}

	l2Normalize(vec)
	return domain.EmbeddingResult{Vector: vec, Degraded: true}, nil
}

// l2Normalize scales a vector to unit length in place. Zero vectors are
// left untouched.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
