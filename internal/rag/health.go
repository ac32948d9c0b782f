package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragway/internal/cache"
	"github.com/kailas-cloud/ragway/internal/cachekey"
	"github.com/kailas-cloud/ragway/internal/retriever"
)

// backendHealthTTL caps how long a successful backend ping is reused
// before the model is probed again. Failures are never cached.
const backendHealthTTL = 30 * time.Second

// BackendStatus is the generation backend health snapshot.
type BackendStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// HealthReport aggregates per-collaborator health. It is always fully
// populated: a collaborator being down shows up as its own degraded
// section, never as a missing one.
type HealthReport struct {
	Status    string           `json:"status"` // "ok" or "degraded"
	Cache     cache.Status     `json:"cache"`
	Retriever retriever.Report `json:"retriever"`
	Backend   BackendStatus    `json:"backend"`
}

// HealthCheck probes each collaborator in isolation and aggregates the
// results. A panicking or failing probe degrades its own section only.
func (s *Service) HealthCheck(ctx context.Context) HealthReport {
	var report HealthReport

	probe(func() {
		report.Cache = s.cache.Status(ctx)
	}, func(r any) {
		report.Cache = cache.Status{State: "disconnected", Error: fmt.Sprint(r)}
	})

	probe(func() {
		report.Retriever = s.retriever.HealthCheck(ctx)
	}, func(r any) {
		report.Retriever = retriever.Report{Error: fmt.Sprint(r)}
	})

	probe(func() {
		report.Backend = s.backendHealth(ctx)
	}, func(r any) {
		report.Backend = BackendStatus{Error: fmt.Sprint(r)}
	})

	// A deliberately disabled cache is an accepted mode, not degradation.
	report.Status = "ok"
	if !report.Backend.Connected || !report.Retriever.Initialized || report.Cache.State == "disconnected" {
		report.Status = "degraded"
	}
	return report
}

// backendHealth pings the generation backend. A successful ping is cached
// under the healthcheck namespace so frequent /health polling does not
// turn into a completion request per poll.
func (s *Service) backendHealth(ctx context.Context) BackendStatus {
	key := cachekey.Derive(cachekey.NamespaceHealth,
		[]cachekey.Param{{Name: "model", Value: s.cfg.Model}}, "backend")
	if _, ok := s.cache.Get(ctx, key); ok {
		return BackendStatus{Connected: true}
	}

	if err := s.backend.HealthCheck(ctx); err != nil {
		return BackendStatus{Error: err.Error()}
	}
	_ = s.cache.SetTTL(ctx, key, "ok", backendHealthTTL)
	return BackendStatus{Connected: true}
}

// probe runs fn, routing a panic to onPanic instead of the caller.
func probe(fn func(), onPanic func(r any)) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(r)
		}
	}()
	fn()
}
