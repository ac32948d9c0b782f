// Package retriever indexes documents into a vector collection and
// answers semantic search queries. Search failures degrade to an empty
// result set so callers can fall back to context-free generation.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/metrics"
	"github.com/kailas-cloud/ragway/internal/retriever/qdrant"
)

// index is the slice of the Qdrant client the retriever needs.
type index interface {
	Collection() string
	CollectionInfo(ctx context.Context) (width int, exists bool, err error)
	CreateCollection(ctx context.Context, size int) error
	Upsert(ctx context.Context, points []qdrant.Point) error
	Search(ctx context.Context, vector []float32, limit int, filter map[string]any) ([]qdrant.ScoredPoint, error)
	Count(ctx context.Context) (int, error)
}

// Report is the retriever health snapshot.
type Report struct {
	Initialized       bool   `json:"initialized"`
	Connected         bool   `json:"connected"`
	Dimensions        int    `json:"dimensions,omitempty"`
	Documents         int    `json:"documents,omitempty"`
	EmbeddingDegraded bool   `json:"embedding_degraded,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Service embeds queries and documents and talks to the vector index.
type Service struct {
	index    index
	embedder domain.Embedder
	dims     int
	logger   *zap.Logger

	mu      sync.RWMutex
	ready   bool
	initErr error
}

// New creates a retriever over the given index and embedder. dims is the
// embedding width the collection must carry.
func New(idx index, embedder domain.Embedder, dims int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:    idx,
		embedder: embedder,
		dims:     dims,
		logger:   logger.With(zap.String("component", "retriever")),
	}
}

// Init verifies the collection schema, creating the collection when absent.
// A persisted collection whose vector width differs from the configured
// embedding width is a configuration fault: Init returns a dimension
// mismatch error and the retriever never becomes ready.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	width, exists, err := s.index.CollectionInfo(ctx)
	if err != nil {
		s.initErr = fmt.Errorf("inspect collection %q: %w", s.index.Collection(), err)
		return s.initErr
	}

	if !exists {
		if err := s.index.CreateCollection(ctx, s.dims); err != nil {
			s.initErr = fmt.Errorf("create collection %q: %w", s.index.Collection(), err)
			return s.initErr
		}
		s.logger.Info("created vector collection",
			zap.String("collection", s.index.Collection()),
			zap.Int("dimensions", s.dims))
	} else if width != s.dims {
		s.initErr = domain.NewDimMismatch(s.dims, width)
		return s.initErr
	}

	s.ready = true
	s.initErr = nil
	s.logger.Info("retriever ready",
		zap.String("collection", s.index.Collection()),
		zap.Int("dimensions", s.dims))
	return nil
}

// Ready reports whether Init completed successfully.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// AddDocuments embeds and upserts a batch. The batch is atomic on the
// embedding side: the first embedding failure aborts the whole batch and
// the error names the failing document index.
func (s *Service) AddDocuments(ctx context.Context, docs []domain.Document) error {
	if !s.Ready() {
		return domain.ErrRetrieverNotReady
	}
	if len(docs) == 0 {
		return nil
	}

	points := make([]qdrant.Point, 0, len(docs))
	for i, doc := range docs {
		res, err := s.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed document %d: %w", i, err)
		}
		points = append(points, qdrant.Point{
			ID:      qdrant.PointID(doc.Content),
			Vector:  res.Vector,
			Payload: qdrant.NewPayload(doc.Content, doc.Metadata),
		})
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("upsert %d documents: %w", len(points), err)
	}

	s.logger.Info("documents indexed", zap.Int("count", len(docs)))
	return nil
}

// Search returns up to k documents most similar to the query, ordered by
// decreasing score. Any failure degrades to an empty result set.
func (s *Service) Search(ctx context.Context, query string, k int, filter map[string]any) []domain.ScoredDocument {
	if !s.Ready() || k <= 0 {
		metrics.RetrievalRequestsTotal.WithLabelValues("skipped").Inc()
		return []domain.ScoredDocument{}
	}

	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, returning no context", zap.Error(err))
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return []domain.ScoredDocument{}
	}

	points, err := s.index.Search(ctx, res.Vector, k, filter)
	if err != nil {
		s.logger.Warn("vector search failed, returning no context", zap.Error(err))
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return []domain.ScoredDocument{}
	}

	docs := make([]domain.ScoredDocument, 0, len(points))
	for _, p := range points {
		content, metadata := qdrant.DocumentFromPayload(p.Payload)
		docs = append(docs, domain.ScoredDocument{
			Document: domain.Document{Content: content, Metadata: metadata},
			Score:    p.Score,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })

	metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	metrics.RetrievalDocuments.Observe(float64(len(docs)))
	return docs
}

// HealthCheck probes the index and the embedder without failing the
// overall report: every fault is folded into the snapshot.
func (s *Service) HealthCheck(ctx context.Context) Report {
	s.mu.RLock()
	ready, initErr := s.ready, s.initErr
	s.mu.RUnlock()

	report := Report{Initialized: ready, Dimensions: s.dims}
	if initErr != nil {
		report.Error = initErr.Error()
	}

	res, embErr := s.embedder.Embed(ctx, "healthcheck")
	if embErr == nil {
		report.EmbeddingDegraded = res.Degraded
	}

	// The liveness probe goes through the serving path when possible: a
	// one-result search against the collection. Before Init succeeds the
	// collection may not exist, so connectivity falls back to a schema read.
	var probeErr error
	if ready && embErr == nil {
		_, probeErr = s.index.Search(ctx, res.Vector, 1, nil)
	} else {
		_, _, probeErr = s.index.CollectionInfo(ctx)
	}
	if probeErr != nil {
		if report.Error == "" {
			report.Error = probeErr.Error()
		}
		return report
	}

	report.Connected = true
	if n, err := s.index.Count(ctx); err == nil {
		report.Documents = n
	}
	return report
}
