package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain. Degraded marks vectors produced by the deterministic
// fallback instead of the configured provider: such vectors keep the system
// functioning but carry reduced semantic quality, and monitoring must be
// able to tell them apart.
type EmbeddingResult struct {
	Vector       []float32
	Degraded     bool
	PromptTokens int
	TotalTokens  int
}
