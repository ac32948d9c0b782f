package rag

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/ragway/internal/cachekey"
	"github.com/kailas-cloud/ragway/internal/domain"
)

// degradedResponse is returned to callers when generation fails outright.
// It is a textual answer, not an error: one bad request must never take
// the process or the HTTP surface down.
const degradedResponse = "The model backend is currently unavailable. Please try again shortly."

// Config holds the orchestrator settings.
type Config struct {
	Model         string
	Temperature   float32
	Collection    string
	CacheTTL      time.Duration
	MaxDocs       int
	MinScore      float64
	MaxConcurrent int64
}

// Service coordinates cache, retriever and generation backend.
type Service struct {
	cache     Cache
	retriever Retriever
	backend   Backend
	cfg       Config
	sem       *semaphore.Weighted
	logger    *zap.Logger
}

// New creates the orchestrator. MaxConcurrent bounds outstanding backend
// and index calls.
func New(c Cache, r Retriever, b Backend, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.MaxDocs <= 0 {
		cfg.MaxDocs = 3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	return &Service{
		cache:     c,
		retriever: r,
		backend:   b,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:    logger.With(zap.String("component", "rag")),
	}
}

// Generate answers a prompt without retrieval. The response cache is
// consulted first; on a hit the backend is never invoked. Generation
// failure yields a degraded textual response, not an error.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrEmptyMessage
	}

	key := cachekey.Derive(cachekey.NamespaceLLM, s.keyParams(nil), prompt)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	text, err := s.invoke(ctx, prompt)
	if err != nil {
		s.logger.Warn("generation failed, serving degraded response", zap.Error(err))
		return degradedResponse, nil
	}

	s.store(ctx, key, text)
	return text, nil
}

// GenerateWithContext answers a prompt augmented with retrieved documents.
// Every failure along the retrieval path falls back to plain Generate.
func (s *Service) GenerateWithContext(ctx context.Context, prompt string, opts ContextOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrEmptyMessage
	}

	if opts.MaxDocs <= 0 {
		opts.MaxDocs = s.cfg.MaxDocs
	}
	if opts.MinScore == 0 {
		opts.MinScore = s.cfg.MinScore
	}

	key := cachekey.Derive(cachekey.NamespaceRAG, s.keyParams(&opts), prompt)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	if !s.retriever.Ready() {
		s.logger.Debug("retriever not ready, using basic generation")
		return s.Generate(ctx, prompt)
	}

	docs := s.retriever.Search(ctx, prompt, opts.MaxDocs, nil)
	if opts.IncludeScores {
		docs = filterByScore(docs, opts.MinScore)
	}

	var augmented string
	if len(docs) == 0 {
		augmented = buildNoContextPrompt(prompt)
	} else {
		augmented = buildAugmentedPrompt(prompt, docs)
	}

	text, err := s.invoke(ctx, augmented)
	if err != nil {
		s.logger.Warn("augmented generation failed, falling back to basic path",
			zap.Error(err), zap.Int("docs", len(docs)))
		return s.Generate(ctx, prompt)
	}

	s.store(ctx, key, text)
	return text, nil
}

// IndexDocuments adds documents to the corpus and invalidates every
// cached context-augmented answer: those were grounded on the old corpus.
func (s *Service) IndexDocuments(ctx context.Context, docs []domain.Document) error {
	if err := s.retriever.AddDocuments(ctx, docs); err != nil {
		return err
	}

	pattern := cachekey.Pattern(cachekey.NamespaceRAG)
	flushed, err := s.cache.FlushPattern(ctx, pattern)
	if err != nil {
		s.logger.Warn("context cache invalidation failed", zap.Error(err))
		return nil
	}
	if flushed > 0 {
		s.logger.Info("context cache invalidated",
			zap.Int("entries", flushed), zap.Int("documents", len(docs)))
	}
	return nil
}

// invoke runs the backend under the concurrency bound.
func (s *Service) invoke(ctx context.Context, prompt string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	return s.backend.Invoke(ctx, prompt)
}

// store writes a response to the cache, logging but never surfacing failure.
func (s *Service) store(ctx context.Context, key, value string) {
	if err := s.cache.SetTTL(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("response cache write failed", zap.Error(err))
	}
}

// keyParams renders the generation parameters that distinguish cache
// entries. Context options widen the key so differently-tuned requests
// never collide.
func (s *Service) keyParams(opts *ContextOptions) []cachekey.Param {
	params := []cachekey.Param{
		{Name: "model", Value: s.cfg.Model},
		{Name: "temperature", Value: strconv.FormatFloat(float64(s.cfg.Temperature), 'f', -1, 32)},
	}
	if opts != nil {
		params = append(params,
			cachekey.Param{Name: "collection", Value: s.cfg.Collection},
			cachekey.Param{Name: "max_docs", Value: strconv.Itoa(opts.MaxDocs)},
			cachekey.Param{Name: "min_score", Value: strconv.FormatFloat(opts.MinScore, 'f', -1, 64)},
			cachekey.Param{Name: "include_scores", Value: strconv.FormatBool(opts.IncludeScores)},
		)
	}
	return params
}

func filterByScore(docs []domain.ScoredDocument, minScore float64) []domain.ScoredDocument {
	kept := make([]domain.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Score >= minScore {
			kept = append(kept, doc)
		}
	}
	return kept
}
