// Package cache provides a resilient gateway over a remote key-value
// store. Lookups never fail: any store error is reported to the caller as
// a miss, so cache-unavailable and cache-miss are indistinguishable on the
// read path. Writes propagate their errors; callers decide whether a lost
// write is fatal.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/kv"
)

// store is the consumer interface for the gateway (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
}

// Status reports gateway connection state for health endpoints.
type Status struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"` // "ready", "disconnected", "disabled"
	Error     string `json:"error,omitempty"`
}

// Gateway is a resilient client over a remote key-value store.
type Gateway struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	disabledOnce sync.Once
}

// New creates a gateway with a default TTL for Set.
// cacheTotal is a counter vec with labels ("namespace", "result"), may be nil.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Gateway {
	return &Gateway{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Disabled creates a no-op gateway used when cache initialization failed.
// Every Get is a miss and every write succeeds silently, so generation
// keeps working without caching for the process lifetime.
func Disabled(logger *zap.Logger) *Gateway {
	return &Gateway{logger: logger}
}

// Enabled reports whether a store is attached.
func (g *Gateway) Enabled() bool { return g.store != nil }

// Get retrieves a cached value. Any store error degrades to a miss.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool) {
	if g.store == nil {
		g.logDisabled()
		return "", false
	}

	data, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			g.logger.Warn("Cache lookup failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		g.incCache(key, "miss")
		return "", false
	}

	g.incCache(key, "hit")
	return string(data), true
}

// Set stores a value with the gateway's default TTL. Errors propagate.
func (g *Gateway) Set(ctx context.Context, key, value string) error {
	return g.SetTTL(ctx, key, value, g.ttl)
}

// SetTTL stores a value with an explicit TTL. Errors propagate.
func (g *Gateway) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if g.store == nil {
		g.logDisabled()
		return nil
	}
	return g.store.SetWithTTL(ctx, key, []byte(value), ttl)
}

// Exists reports key presence. Degrades to false on error.
func (g *Gateway) Exists(ctx context.Context, key string) bool {
	if g.store == nil {
		return false
	}
	ok, err := g.store.Exists(ctx, key)
	if err != nil {
		g.logger.Warn("Cache exists check failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// Expire resets a key's TTL. Errors propagate.
func (g *Gateway) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if g.store == nil {
		return nil
	}
	return g.store.Expire(ctx, key, ttl)
}

// Del removes a key. Errors propagate.
func (g *Gateway) Del(ctx context.Context, key string) error {
	if g.store == nil {
		return nil
	}
	return g.store.Del(ctx, key)
}

// FlushPattern deletes every key matching a glob pattern and returns the
// number deleted. Used for namespace-scoped invalidation.
func (g *Gateway) FlushPattern(ctx context.Context, pattern string) (int, error) {
	if g.store == nil {
		return 0, nil
	}
	return g.store.DeleteByPattern(ctx, pattern)
}

// Status pings the store and reports connection state. Never returns an
// error: failures are captured in the status itself.
func (g *Gateway) Status(ctx context.Context) Status {
	if g.store == nil {
		return Status{Connected: false, State: "disabled"}
	}
	if err := g.store.Ping(ctx); err != nil {
		return Status{Connected: false, State: "disconnected", Error: err.Error()}
	}
	return Status{Connected: true, State: "ready"}
}

func (g *Gateway) incCache(key, result string) {
	if g.cacheTotal != nil {
		g.cacheTotal.WithLabelValues(namespaceOf(key), result).Inc()
	}
}

func (g *Gateway) logDisabled() {
	g.disabledOnce.Do(func() {
		g.logger.Warn("Cache is disabled, all lookups miss and writes are dropped")
	})
}

// namespaceOf extracts the namespace prefix from a derived key.
func namespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
