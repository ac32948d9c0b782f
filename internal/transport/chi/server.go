// Package chi exposes the gateway's HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/rag"
)

const maxBatchSize = 100

// Error codes returned in JSON error bodies.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotReady         = "retriever_not_ready"
	CodeProviderError    = "provider_error"
	CodeInternalError    = "internal_error"
)

// Orchestrator is the generation and ingest surface the server exposes.
type Orchestrator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithContext(ctx context.Context, prompt string, opts rag.ContextOptions) (string, error)
	IndexDocuments(ctx context.Context, docs []domain.Document) error
	HealthCheck(ctx context.Context) rag.HealthReport
}

// Indexer is the ad-hoc search surface the server exposes.
type Indexer interface {
	Search(ctx context.Context, query string, k int, filter map[string]any) []domain.ScoredDocument
}

// Streamer delivers a generated response as ordered chunks.
type Streamer interface {
	InvokeStream(ctx context.Context, prompt string) (<-chan string, error)
}

// Server holds the HTTP handlers.
type Server struct {
	orchestrator Orchestrator
	indexer      Indexer
	streamer     Streamer
	logger       *zap.Logger
}

// NewServer creates the HTTP API server. streamer may be nil, which
// disables the streaming endpoint.
func NewServer(orchestrator Orchestrator, indexer Indexer, streamer Streamer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		orchestrator: orchestrator,
		indexer:      indexer,
		streamer:     streamer,
		logger:       logger,
	}
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/chat", s.Chat)
	r.Post("/api/chat/context", s.ChatWithContext)
	r.Get("/api/chat/stream", s.ChatStream)
	r.Post("/api/documents", s.AddDocuments)
	r.Post("/api/search", s.Search)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "message is required")
		return
	}

	text, err := s.orchestrator.Generate(r.Context(), req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: text})
}

type chatContextRequest struct {
	Message       string  `json:"message"`
	MaxDocs       int     `json:"max_docs,omitempty"`
	MinScore      float64 `json:"min_score,omitempty"`
	IncludeScores bool    `json:"include_scores,omitempty"`
}

// ChatWithContext handles POST /api/chat/context.
func (s *Server) ChatWithContext(w http.ResponseWriter, r *http.Request) {
	var req chatContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "message is required")
		return
	}
	if req.MaxDocs < 0 || req.MinScore < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "max_docs and min_score must be non-negative")
		return
	}

	text, err := s.orchestrator.GenerateWithContext(r.Context(), req.Message, rag.ContextOptions{
		MaxDocs:       req.MaxDocs,
		MinScore:      req.MinScore,
		IncludeScores: req.IncludeScores,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: text})
}

// ChatStream handles GET /api/chat/stream?message=. The response is
// delivered as server-sent events, one data line per chunk.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	if s.streamer == nil {
		writeError(w, http.StatusNotImplemented, CodeInternalError, "streaming is not enabled")
		return
	}

	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternalError, "streaming unsupported by connection")
		return
	}

	chunks, err := s.streamer.InvokeStream(r.Context(), message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

type documentItem struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type addDocumentsRequest struct {
	Documents []documentItem `json:"documents"`
}

type addDocumentsResponse struct {
	Indexed int `json:"indexed"`
}

// AddDocuments handles POST /api/documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var req addDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("documents count must be between 1 and %d", maxBatchSize))
		return
	}

	docs := make([]domain.Document, len(req.Documents))
	for i, item := range req.Documents {
		if strings.TrimSpace(item.Content) == "" {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				fmt.Sprintf("document %d: content is required", i))
			return
		}
		docs[i] = domain.Document{Content: item.Content, Metadata: item.Metadata}
	}

	if err := s.orchestrator.IndexDocuments(r.Context(), docs); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, addDocumentsResponse{Indexed: len(docs)})
}

type searchRequest struct {
	Query    string         `json:"query"`
	K        int            `json:"k,omitempty"`
	MinScore float64        `json:"min_score,omitempty"`
	Filter   map[string]any `json:"filter,omitempty"`
}

type searchResultItem struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Total   int                `json:"total"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}
	if req.K <= 0 {
		req.K = 3
	}

	docs := s.indexer.Search(r.Context(), req.Query, req.K, req.Filter)

	results := make([]searchResultItem, 0, len(docs))
	for _, doc := range docs {
		if doc.Score < req.MinScore {
			continue
		}
		results = append(results, searchResultItem{
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Score:    doc.Score,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results, Total: len(results)})
}

// Health handles GET /health. The body is always a full structured
// report, even when every collaborator is down.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.orchestrator.HealthCheck(r.Context())

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyMessage,
		domain.ErrRetrieverNotReady,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
	case errors.Is(err, domain.ErrRetrieverNotReady):
		writeError(w, http.StatusServiceUnavailable, CodeNotReady, msg)
	case errors.Is(err, domain.ErrVectorDimMismatch):
		writeError(w, http.StatusConflict, CodeValidationFailed, err.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, domain.ErrGenerationProviderError):
		writeError(w, http.StatusBadGateway, CodeProviderError, msg)
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}
