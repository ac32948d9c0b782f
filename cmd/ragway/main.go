package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/cache"
	"github.com/kailas-cloud/ragway/internal/config"
	"github.com/kailas-cloud/ragway/internal/domain"
	"github.com/kailas-cloud/ragway/internal/embed"
	embOpenai "github.com/kailas-cloud/ragway/internal/embed/openai"
	"github.com/kailas-cloud/ragway/internal/kv"
	kvRedis "github.com/kailas-cloud/ragway/internal/kv/redis"
	"github.com/kailas-cloud/ragway/internal/llm"
	logpkg "github.com/kailas-cloud/ragway/internal/logger"
	"github.com/kailas-cloud/ragway/internal/metrics"
	"github.com/kailas-cloud/ragway/internal/rag"
	"github.com/kailas-cloud/ragway/internal/retriever"
	"github.com/kailas-cloud/ragway/internal/retriever/qdrant"
	chiTransport "github.com/kailas-cloud/ragway/internal/transport/chi"
	"github.com/kailas-cloud/ragway/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragway gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("vector_url", cfg.Vector.URL),
		zap.String("model", cfg.Model.Model),
	)

	metrics.RegisterRAGMetrics()

	ctx := context.Background()

	// Cache is optional: a missing store degrades to pass-through mode,
	// it never blocks startup.
	store, gateway := buildCache(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	embedder := buildEmbedder(cfg, store, logger)

	// Retriever init is allowed to fail: the gateway keeps serving the
	// basic generation path. A dimension mismatch stays visible in
	// /health until the operator fixes the collection or the config.
	qdrantClient := qdrant.New(qdrant.Config{
		BaseURL:    cfg.Vector.URL,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.Vector.Collection,
		Distance:   cfg.Vector.Distance,
	}, logger)

	ret := retriever.New(qdrantClient, embedder, cfg.Embedding.Dimensions, logger)
	if err := ret.Init(ctx); err != nil {
		logger.Error("Retriever initialization failed, context-augmented path disabled", zap.Error(err))
	}

	backend := llm.NewClient(&llm.Config{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Model,
		Temperature: cfg.Model.Temperature,
		Logger:      logger,
	})

	orchestrator := rag.New(gateway, ret, backend, rag.Config{
		Model:         cfg.Model.Model,
		Temperature:   cfg.Model.Temperature,
		Collection:    cfg.Vector.Collection,
		CacheTTL:      time.Duration(cfg.Cache.TTLSec) * time.Second,
		MaxDocs:       cfg.Vector.MaxDocs,
		MinScore:      cfg.Vector.MinScore,
		MaxConcurrent: int64(cfg.Model.MaxConcurrent),
	}, logger)

	server := chiTransport.NewServer(orchestrator, ret, backend, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildCache connects the key-value store and wraps it in the gateway.
// Any failure produces a disabled gateway instead of aborting startup.
func buildCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (kv.Store, *cache.Gateway) {
	if cfg.Cache.Disabled {
		logger.Info("Cache disabled by configuration")
		return nil, cache.Disabled(logger)
	}

	store, err := kvRedis.NewStore(kvRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Error("Failed to create cache store, running without cache", zap.Error(err))
		return nil, cache.Disabled(logger)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Error("Cache not ready, running without cache", zap.Error(err))
		store.Close()
		return nil, cache.Disabled(logger)
	}
	logger.Info("Connected to cache")

	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	return store, cache.New(store, ttl, metrics.CacheTotal, logger)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Resilient
func buildEmbedder(cfg config.Config, store kv.Store, logger *zap.Logger) domain.Embedder {
	base := embOpenai.NewEmbedder(&embOpenai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embed.NewCachedEmbedder(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Outermost: deterministic local fallback keeps requests flowing when
	// the provider is down, tagged Degraded so results are never cached.
	fallback := embed.NewFallbackEmbedder(cfg.Embedding.Dimensions)
	return embed.NewResilientEmbedder(embedder, fallback, logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
