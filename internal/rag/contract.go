// Package rag orchestrates retrieval-augmented generation: cache lookup,
// context retrieval, prompt assembly and model invocation, degrading to
// simpler paths whenever a collaborator fails.
package rag

import (
	"context"
	"time"

	"github.com/kailas-cloud/ragway/internal/cache"
	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/retriever"
)

// Cache is the slice of the cache gateway the orchestrator uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	FlushPattern(ctx context.Context, pattern string) (int, error)
	Status(ctx context.Context) cache.Status
}

// Retriever indexes documents and answers semantic search queries.
type Retriever interface {
	Ready() bool
	AddDocuments(ctx context.Context, docs []domain.Document) error
	Search(ctx context.Context, query string, k int, filter map[string]any) []domain.ScoredDocument
	HealthCheck(ctx context.Context) retriever.Report
}

// Backend generates text for a prompt.
type Backend interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// ContextOptions tune a context-augmented generation request.
type ContextOptions struct {
	MaxDocs       int
	MinScore      float64
	IncludeScores bool
}
