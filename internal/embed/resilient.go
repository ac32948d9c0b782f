package embed

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/metrics"
)

// ResilientEmbedder tries the primary embedder and falls back to the
// deterministic local embedder on any error. The fallback result carries
// Degraded=true so callers and monitoring can detect that semantic quality
// has dropped; the degradation is observable, not silent. Embed itself
// never returns an error.
type ResilientEmbedder struct {
	primary  domain.Embedder
	fallback *FallbackEmbedder
	logger   *zap.Logger
}

// NewResilientEmbedder creates the fallback decorator.
func NewResilientEmbedder(primary domain.Embedder, fallback *FallbackEmbedder, logger *zap.Logger) *ResilientEmbedder {
	return &ResilientEmbedder{primary: primary, fallback: fallback, logger: logger}
}

// Embed implements domain.Embedder.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	result, err := r.primary.Embed(ctx, text)
	if err == nil {
		return result, nil
	}

	r.logger.Warn("Primary embedding failed, using deterministic fallback",
		zap.Error(err))
	metrics.EmbeddingDegradedTotal.Inc()

	return r.fallback.Embed(ctx, text)
}

// HealthCheck reports the primary provider's availability. A failing
// primary does not make Embed fail, but health must surface it.
func (r *ResilientEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.primary.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
